package web

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/newzealection/new-zealection/internal/auth"
	"github.com/newzealection/new-zealection/internal/collection"
	"github.com/newzealection/new-zealection/internal/config"
	"github.com/newzealection/new-zealection/internal/database"
	dbmodels "github.com/newzealection/new-zealection/internal/database/models"
	"github.com/newzealection/new-zealection/internal/database/repositories"
	"github.com/newzealection/new-zealection/internal/economy"
	"github.com/newzealection/new-zealection/internal/gacha"
	"github.com/newzealection/new-zealection/internal/services"
	webmodels "github.com/newzealection/new-zealection/internal/web/models"
	"github.com/newzealection/new-zealection/internal/web/utils"
)

// WebApp holds every dependency the HTTP handlers need.
type WebApp struct {
	Config      *config.Config
	DB          *database.DB
	Cards       repositories.CardRepository
	Profiles    repositories.ProfileRepository
	Sales       repositories.SaleRepository
	Collection  *collection.Service
	Roll        *economy.RollService
	Sell        *economy.SellService
	Mana        *economy.ManaService
	OAuth       *auth.OAuthService
	Sessions    *auth.SessionService
	Broadcaster *auth.Broadcaster
	Images      *services.ImageService
	Mail        *services.MailService
	Version     string
}

// HealthCheck reports service and database health.
func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := webmodels.NewHealthCheck(webApp.Version)

		if webApp.DB != nil {
			if err := webApp.DB.GetPool().Ping(c.Context()); err != nil {
				health.AddComponent("database", "unhealthy", err.Error(), nil)
			} else {
				health.AddComponent("database", "healthy", "", nil)
			}
		} else {
			health.AddComponent("database", "unhealthy", "not configured", nil)
		}

		status := fiber.StatusOK
		if health.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return utils.SendJSON(c, status, health)
	}
}

// Login starts the OAuth authorization code flow.
func Login(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := webApp.OAuth.GenerateState()
		if err != nil {
			slog.Error("Failed to generate OAuth state", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to start login")
		}

		if err := webApp.Sessions.SetState(c, state); err != nil {
			return utils.SendInternalServerError(c, "Failed to start login")
		}

		return c.Redirect(webApp.OAuth.AuthorizeURL(state), fiber.StatusTemporaryRedirect)
	}
}

// OAuthCallback completes the code flow, provisions the profile row and issues
// the session cookie.
func OAuthCallback(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if errParam := c.Query("error"); errParam != "" {
			slog.Warn("OAuth provider returned error", slog.String("error", errParam))
			return c.Redirect("/auth/login")
		}

		expectedState, err := webApp.Sessions.GetAndClearState(c)
		if err != nil || expectedState == "" || c.Query("state") != expectedState {
			slog.Warn("OAuth state mismatch", slog.String("ip", utils.GetIPAddress(c)))
			return utils.SendBadRequest(c, "Invalid OAuth state", nil)
		}

		code := c.Query("code")
		if code == "" {
			return utils.SendBadRequest(c, "Missing authorization code", nil)
		}

		token, err := webApp.OAuth.ExchangeCodeForToken(c.Context(), code)
		if err != nil {
			slog.Error("OAuth code exchange failed", slog.String("error", err.Error()))
			return utils.SendUnauthorized(c, "Login failed")
		}

		providerUser, err := webApp.OAuth.FetchUser(c.Context(), token)
		if err != nil {
			slog.Error("Failed to fetch user from provider", slog.String("error", err.Error()))
			return utils.SendUnauthorized(c, "Login failed")
		}

		created, err := webApp.Profiles.Upsert(c.Context(), &dbmodels.Profile{
			ID:    providerUser.ID,
			Email: providerUser.Email,
		})
		if err != nil {
			slog.Error("Failed to upsert profile",
				slog.String("user_id", providerUser.ID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Login failed")
		}

		if created && webApp.Mail != nil && webApp.Mail.Enabled() && providerUser.Email != "" {
			// Welcome mail is best effort; login never fails on it.
			if err := webApp.Mail.SendWelcomeEmail(c.Context(), providerUser.Email); err != nil {
				slog.Warn("Failed to send welcome email",
					slog.String("user_id", providerUser.ID),
					slog.String("error", err.Error()))
			}
		}

		session := &auth.UserSession{
			UserID:    providerUser.ID,
			Email:     providerUser.Email,
			IsAdmin:   webApp.isAdminUser(providerUser.ID),
			ExpiresAt: time.Now().Add(auth.SessionTTL),
		}

		if err := webApp.Sessions.CreateSession(c, session); err != nil {
			slog.Error("Failed to create session", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Login failed")
		}

		webApp.Broadcaster.Publish(auth.EventSignedIn, session)

		slog.Info("User signed in",
			slog.String("user_id", session.UserID),
			slog.Bool("new_profile", created))

		return c.Redirect("/")
	}
}

// Logout clears the session cookie.
func Logout(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if session, err := webApp.Sessions.GetSession(c); err == nil {
			slog.Info("User signed out", slog.String("user_id", session.UserID))
		}

		webApp.Sessions.DestroySession(c)
		webApp.Broadcaster.Publish(auth.EventSignedOut, nil)

		if strings.Contains(c.Get("Accept"), "application/json") {
			return utils.SendSuccess(c, nil, "Signed out")
		}
		return c.Redirect("/auth/login")
	}
}

// ValidateSession reports the current session, if any.
func ValidateSession(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := webApp.Sessions.GetSession(c)
		if err != nil {
			return utils.SendUnauthorized(c, "No valid session")
		}

		return utils.SendSuccess(c, &webmodels.SessionResponse{
			UserID:    session.UserID,
			Email:     session.Email,
			IsAdmin:   session.IsAdmin,
			ExpiresAt: session.ExpiresAt,
		}, "")
	}
}

// Catalog lists every card template.
func Catalog(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cards, err := webApp.Cards.GetAll(c.Context())
		if err != nil {
			slog.Error("Failed to load catalog", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load catalog")
		}

		return utils.SendSuccess(c, toCatalogCards(cards), "")
	}
}

// CatalogSearch fuzzy-searches the catalog by title and location.
func CatalogSearch(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			return utils.SendBadRequest(c, "Missing query parameter 'q'", nil)
		}

		limit := parseLimit(c.Query("limit"), 20, 100)
		cards, err := webApp.Collection.SearchCatalog(c.Context(), query, limit)
		if err != nil {
			slog.Error("Catalog search failed", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Search failed")
		}

		return utils.SendSuccess(c, toCatalogCards(cards), "")
	}
}

// Collection returns the caller's cards, filtered and sorted per query params.
// An empty collection is a normal response, not an error.
func Collection(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, _ := utils.ExtractUserSession(c)

		filters := collection.Filters{
			Rarity:   c.Query("rarity"),
			Location: c.Query("location"),
		}
		sortBy := collection.ParseSortKey(c.Query("sort"))

		cards, err := webApp.Collection.GetUserCollection(c.Context(), session.UserID, filters, sortBy)
		if err != nil {
			slog.Error("Failed to load collection",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load collection")
		}

		locations, err := webApp.Collection.UserLocations(c.Context(), session.UserID)
		if err != nil {
			slog.Error("Failed to load collection locations",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load collection")
		}

		return utils.SendSuccess(c, &webmodels.CollectionResponse{
			Cards:     cards,
			Locations: locations,
			Total:     len(cards),
		}, "")
	}
}

// Recent lists the latest cards collected across all users.
func Recent(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := parseLimit(c.Query("limit"), 10, 50)

		cards, err := webApp.Collection.GetRecent(c.Context(), limit)
		if err != nil {
			slog.Error("Failed to load recent cards", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load recent cards")
		}

		return utils.SendSuccess(c, cards, "")
	}
}

// RollStatus reports whether the caller may roll and the countdown otherwise.
func RollStatus(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, _ := utils.ExtractUserSession(c)

		status, err := webApp.Roll.Status(c.Context(), session.UserID)
		if err != nil {
			slog.Error("Failed to load roll status",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load roll status")
		}

		resp := &webmodels.RollStatusResponse{
			CanRoll:          status.CanRoll,
			RemainingSeconds: int64(status.Remaining.Seconds()),
		}
		if !status.LastRollAt.IsZero() {
			last := status.LastRollAt
			next := last.Add(gacha.RollCooldown)
			resp.LastRollAt = &last
			resp.NextRollAt = &next
		}

		return utils.SendSuccess(c, resp, "")
	}
}

// RollCard draws a random card for the caller. The draw happens entirely
// server-side; a request during cooldown is rejected with 409.
func RollCard(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, _ := utils.ExtractUserSession(c)

		result, err := webApp.Roll.Roll(c.Context(), session.UserID)
		if err != nil {
			switch {
			case errors.Is(err, economy.ErrRollOnCooldown):
				return utils.SendConflict(c, "Roll is on cooldown", nil)
			case errors.Is(err, economy.ErrEmptyCatalog):
				return utils.SendError(c, fiber.StatusServiceUnavailable,
					"EMPTY_CATALOG", "No cards available to roll", nil)
			default:
				slog.Error("Roll failed",
					slog.String("user_id", session.UserID),
					slog.String("error", err.Error()))
				return utils.SendInternalServerError(c, "Roll failed")
			}
		}

		return utils.SendCreated(c, &webmodels.RollResponse{
			UserCardID:   result.UserCard.ID,
			CardID:       result.Card.ID,
			UniqueCardID: result.UserCard.UniqueCardID,
			Title:        result.Card.Title,
			Location:     result.Card.Location,
			Rarity:       string(result.Card.Rarity),
			ImageURL:     result.Card.ImageURL,
			Description:  result.Card.Description,
			ManaValue:    result.UserCard.ManaValue,
			CollectedAt:  result.UserCard.CollectedAt,
		}, "Card collected")
	}
}

// SellCard sells one of the caller's cards for its mana value.
func SellCard(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, _ := utils.ExtractUserSession(c)

		var req webmodels.SellRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}
		if req.UserCardID == "" {
			return utils.SendBadRequest(c, "Missing user_card_id", nil)
		}

		receipt, err := webApp.Sell.Sell(c.Context(), session.UserID, req.UserCardID, req.IdempotencyKey)
		if err != nil {
			if errors.Is(err, economy.ErrCardNotFound) {
				return utils.SendNotFound(c, "Card not found in your collection")
			}
			slog.Error("Sell failed",
				slog.String("user_id", session.UserID),
				slog.String("user_card_id", req.UserCardID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Sell failed")
		}

		balance, err := webApp.Mana.Balance(c.Context(), session.UserID)
		if err != nil {
			slog.Error("Failed to load mana balance after sale",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Sell completed but balance lookup failed")
		}

		return utils.SendSuccess(c, &webmodels.SellResponse{
			UserCardID:  receipt.UserCardID,
			CardID:      receipt.CardID,
			ManaAwarded: receipt.ManaAwarded,
			ManaBalance: balance,
		}, "Card sold")
	}
}

// ManaBalance reports the caller's mana balance, initializing it at zero for
// first-time users.
func ManaBalance(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, _ := utils.ExtractUserSession(c)

		balance, err := webApp.Mana.Balance(c.Context(), session.UserID)
		if err != nil {
			slog.Error("Failed to load mana balance",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load mana balance")
		}

		return utils.SendSuccess(c, &webmodels.ManaResponse{
			UserID: session.UserID,
			Mana:   balance,
		}, "")
	}
}

// SaleHistory lists the caller's completed sales, newest first.
func SaleHistory(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, _ := utils.ExtractUserSession(c)

		limit := parseLimit(c.Query("limit"), 20, 100)
		sales, err := webApp.Sales.GetByUserID(c.Context(), session.UserID, limit)
		if err != nil {
			slog.Error("Failed to load sale history",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load sale history")
		}

		out := make([]*webmodels.SaleRecord, 0, len(sales))
		for _, sale := range sales {
			out = append(out, &webmodels.SaleRecord{
				ID:         sale.ID,
				UserCardID: sale.UserCardID,
				CardID:     sale.CardID,
				ManaValue:  sale.ManaValue,
				Status:     string(sale.Status),
				SoldAt:     sale.SoldAt,
			})
		}
		return utils.SendSuccess(c, out, "")
	}
}

// CreateCard adds a catalog card. Admin only.
func CreateCard(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.CardCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}

		card, details := cardFromRequest(webApp, &req)
		if len(details) > 0 {
			return utils.SendUnprocessableEntity(c, "Card validation failed", details)
		}

		if err := webApp.Cards.Create(c.Context(), card); err != nil {
			slog.Error("Failed to create card",
				slog.String("card_code", card.CardCode),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to create card")
		}

		return utils.SendCreated(c, toCatalogCard(card), "Card created")
	}
}

// BulkCreateCards seeds many catalog cards at once. Rows that conflict with
// existing card codes are skipped, not errors.
func BulkCreateCards(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.CardBulkCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}
		if len(req.Cards) == 0 {
			return utils.SendBadRequest(c, "No cards in request", nil)
		}

		cards := make([]*dbmodels.Card, 0, len(req.Cards))
		for i, cr := range req.Cards {
			card, details := cardFromRequest(webApp, &cr)
			if len(details) > 0 {
				details["index"] = strconv.Itoa(i)
				return utils.SendUnprocessableEntity(c, "Card validation failed", details)
			}
			cards = append(cards, card)
		}

		created, err := webApp.Cards.BulkCreate(c.Context(), cards)
		if err != nil {
			slog.Error("Bulk card create failed", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to create cards")
		}

		return utils.SendCreated(c, &webmodels.BulkCreateResult{
			Requested: len(req.Cards),
			Created:   created,
			Skipped:   len(req.Cards) - created,
		}, "Cards created")
	}
}

// UploadCardImage stores artwork for a catalog card. Admin only.
func UploadCardImage(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if webApp.Images == nil {
			return utils.SendError(c, fiber.StatusServiceUnavailable,
				"STORAGE_UNAVAILABLE", "Image storage is not configured", nil)
		}

		season := c.FormValue("season", "S1")
		cardCode := c.FormValue("card_code")
		if cardCode == "" {
			return utils.SendBadRequest(c, "Missing card_code", nil)
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			return utils.SendBadRequest(c, "Missing image file", nil)
		}

		const maxImageSize = 10 * 1024 * 1024
		if fileHeader.Size > maxImageSize {
			return utils.SendBadRequest(c, "Image too large (max 10MB)", nil)
		}

		file, err := fileHeader.Open()
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to read image")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to read image")
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "image/jpeg"
		}

		url, err := webApp.Images.UploadCardImage(c.Context(), season, cardCode, data, contentType)
		if err != nil {
			slog.Error("Card image upload failed",
				slog.String("card_code", cardCode),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Image upload failed")
		}

		return utils.SendCreated(c, fiber.Map{"image_url": url}, "Image uploaded")
	}
}

func (w *WebApp) isAdminUser(userID string) bool {
	for _, id := range w.Config.Web.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func cardFromRequest(webApp *WebApp, req *webmodels.CardCreateRequest) (*dbmodels.Card, map[string]string) {
	details := make(map[string]string)

	rarity, err := gacha.ParseRarity(req.Rarity)
	if err != nil {
		details["rarity"] = err.Error()
	}
	if strings.TrimSpace(req.Title) == "" {
		details["title"] = "title is required"
	}
	if strings.TrimSpace(req.Location) == "" {
		details["location"] = "location is required"
	}
	if strings.TrimSpace(req.CardCode) == "" {
		details["card_code"] = "card_code is required"
	}
	if len(details) > 0 {
		return nil, details
	}

	season := req.Season
	if season == "" {
		season = "S1"
	}

	imageURL := req.ImageURL
	if imageURL == "" && webApp.Images != nil {
		imageURL = webApp.Images.CardImageURL(season, req.CardCode)
	}

	return &dbmodels.Card{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Location:    req.Location,
		Rarity:      rarity,
		ImageURL:    imageURL,
		Description: req.Description,
		CardCode:    strings.ToUpper(req.CardCode),
		Season:      season,
	}, nil
}

func toCatalogCard(card *dbmodels.Card) *webmodels.CatalogCard {
	return &webmodels.CatalogCard{
		ID:          card.ID,
		Title:       card.Title,
		Location:    card.Location,
		Rarity:      string(card.Rarity),
		ImageURL:    card.ImageURL,
		Description: card.Description,
		CardCode:    card.CardCode,
		Season:      card.Season,
	}
}

func toCatalogCards(cards []*dbmodels.Card) []*webmodels.CatalogCard {
	out := make([]*webmodels.CatalogCard, 0, len(cards))
	for _, card := range cards {
		out = append(out, toCatalogCard(card))
	}
	return out
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
