package ginserver

import (
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	listingsapp "stayhub/internal/app/handlers/listings"
	"stayhub/internal/app/queries"
	domainlistings "stayhub/internal/domain/listings"
)

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type listingPayloadRequest struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Location         string    `json:"location"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	Currency         string    `json:"currency"`
	MaxGuests        int       `json:"max_guests"`
	AvailableFrom    time.Time `json:"available_from"`
	AvailableTo      time.Time `json:"available_to"`
}

func (r listingPayloadRequest) toPayload() listingsapp.ListingPayload {
	return listingsapp.ListingPayload{
		Title:            r.Title,
		Description:      r.Description,
		Category:         r.Category,
		Location:         r.Location,
		NightlyRateCents: r.NightlyRateCents,
		Currency:         r.Currency,
		MaxGuests:        r.MaxGuests,
		AvailableFrom:    r.AvailableFrom,
		AvailableTo:      r.AvailableTo,
	}
}

func (h ListingHandler) Catalog(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := listingsapp.SearchCatalogQuery{Params: searchParamsFromRequest(c)}
	result, err := queries.Ask[listingsapp.SearchCatalogQuery, dto.ListingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := listingsapp.GetListingQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[listingsapp.GetListingQuery, dto.Listing](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Available answers "what could I book for these dates": check_in and
// check_out are required query params, guests defaults to 1.
func (h ListingHandler) Available(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	checkIn, err := time.Parse("2006-01-02", c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be YYYY-MM-DD"})
		return
	}
	checkOut, err := time.Parse("2006-01-02", c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be YYYY-MM-DD"})
		return
	}
	query := listingsapp.AvailableListingsQuery{
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   parsePositiveInt(c.Query("guests"), 1),
		Params:   searchParamsFromRequest(c),
	}
	result, err := queries.Ask[listingsapp.AvailableListingsQuery, dto.ListingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req listingPayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := listingsapp.CreateListingCommand{HostID: user.ID, Payload: req.toPayload()}
	result, err := commands.Dispatch[listingsapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Update(c *gin.Context) {
	user, ok := requireRole(c, "host")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req listingPayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := listingsapp.UpdateListingCommand{
		HostID:    user.ID,
		ListingID: c.Param("id"),
		Payload:   req.toPayload(),
	}
	result, err := commands.Dispatch[listingsapp.UpdateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Delete(c *gin.Context) {
	user, ok := requireRole(c, "host")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := listingsapp.DeleteListingCommand{HostID: user.ID, ListingID: c.Param("id")}
	if _, err := commands.Dispatch[listingsapp.DeleteListingCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ListingHandler) UploadPhoto(c *gin.Context) {
	user, ok := requireRole(c, "host")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer file.Close()

	cmd := listingsapp.UploadListingPhotoCommand{
		HostID:      user.ID,
		ListingID:   c.Param("id"),
		ObjectKey:   "listings/" + c.Param("id") + "/" + uuid.NewString() + "-" + header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	}
	result, err := commands.Dispatch[listingsapp.UploadListingPhotoCommand, *listingsapp.UploadListingPhotoResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func searchParamsFromRequest(c *gin.Context) domainlistings.SearchParams {
	return domainlistings.SearchParams{
		Host:          domainlistings.HostID(c.Query("host_id")),
		Query:         c.Query("q"),
		Category:      c.Query("category"),
		Location:      c.Query("location"),
		MinGuests:     parsePositiveInt(c.Query("min_guests"), 0),
		PriceMinCents: parsePositiveInt64(c.Query("price_min_cents"), 0),
		PriceMaxCents: parsePositiveInt64(c.Query("price_max_cents"), 0),
		Sort:          domainlistings.SortOrder(c.Query("sort")),
		Limit:         parsePositiveInt(c.Query("limit"), 0),
		Offset:        parsePositiveInt(c.Query("offset"), 0),
	}
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func parsePositiveInt64(raw string, fallback int64) int64 {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
