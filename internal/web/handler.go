package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/customk9/booking-gateway/internal/application"
	"github.com/customk9/booking-gateway/internal/domain"
)

const dateLayout = "2006-01-02"

// Handler exposes the booking gateway over HTTP.
type Handler struct {
	sessions     *application.SessionService
	availability *application.AvailabilityService
	bookings     *application.BookingService
	log          zerolog.Logger
}

func NewHandler(sessions *application.SessionService, availability *application.AvailabilityService, bookings *application.BookingService, log zerolog.Logger) *Handler {
	return &Handler{
		sessions:     sessions,
		availability: availability,
		bookings:     bookings,
		log:          log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/login", h.login)
		v1.POST("/auth/logout", h.logout)
		v1.GET("/auth/session", h.session)

		v1.GET("/slots", h.slots)

		v1.POST("/bookings", h.book)
		v1.DELETE("/bookings/:id", h.cancel)
		v1.GET("/appointments", h.appointments)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	UID       int    `json:"uid"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	PartnerID int    `json:"partner_id"`
	ExpiresAt string `json:"expires_at"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login and password are required"})
		return
	}

	sess, err := h.sessions.Authenticate(c.Request.Context(), domain.Credential{
		Login:  req.Login,
		Secret: req.Password,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.sessions.Invalidate(c.Request.Context()); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) session(c *gin.Context) {
	sess, ok := h.sessions.Current(domain.PrivilegeUser)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

type slotResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

func (h *Handler) slots(c *gin.Context) {
	day, err := time.Parse(dateLayout, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	typ, err := domain.ParseSessionType(c.DefaultQuery("type", string(domain.SessionIndividual)))
	if err != nil {
		h.renderError(c, err)
		return
	}

	slots, err := h.availability.Slots(c.Request.Context(), day, typ)
	if err != nil {
		h.renderError(c, err)
		return
	}

	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			Start: s.Start.UTC().Format(time.RFC3339),
			End:   s.End.UTC().Format(time.RFC3339),
			Label: s.Label(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"date": c.Query("date"), "type": string(typ), "slots": out})
}

type bookingRequest struct {
	Type         string        `json:"type" binding:"required"`
	Service      string        `json:"service" binding:"required"`
	Start        time.Time     `json:"start" binding:"required"`
	Participants []participant `json:"participants" binding:"required"`
}

type participant struct {
	PartnerID int    `json:"partner_id"`
	Name      string `json:"name" binding:"required"`
	Notes     string `json:"notes"`
}

func (h *Handler) book(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.BookingFailure(
			domain.NewError(domain.KindBadRequest, "type, service, start and participants are required")))
		return
	}

	typ, err := domain.ParseSessionType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.BookingFailure(err))
		return
	}

	participants := make([]domain.Participant, 0, len(req.Participants))
	for _, p := range req.Participants {
		participants = append(participants, domain.Participant{
			PartnerID: p.PartnerID,
			Name:      p.Name,
			Notes:     p.Notes,
		})
	}

	booking := domain.BookingRequest{
		Type:         typ,
		Service:      req.Service,
		Interval:     domain.NewInterval(req.Start.UTC(), typ.Duration()),
		Participants: participants,
	}

	id, err := h.bookings.Book(c.Request.Context(), booking)
	if err != nil {
		c.JSON(statusForKind(domain.KindOf(err)), domain.BookingFailure(err))
		return
	}
	c.JSON(http.StatusCreated, domain.BookingSuccess(id, booking.Interval.Start))
}

func (h *Handler) cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reservation id must be numeric"})
		return
	}
	if err := h.bookings.Cancel(c.Request.Context(), id); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "id": id})
}

type appointmentResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Start    string `json:"start"`
	Stop     string `json:"stop"`
	Location string `json:"location,omitempty"`
}

func (h *Handler) appointments(c *gin.Context) {
	partnerID, err := strconv.Atoi(c.Query("partner_id"))
	if err != nil || partnerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "partner_id must be a positive integer"})
		return
	}

	upcoming, err := h.bookings.Upcoming(c.Request.Context(), partnerID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	out := make([]appointmentResponse, 0, len(upcoming))
	for _, r := range upcoming {
		out = append(out, appointmentResponse{
			ID:       r.ID,
			Name:     r.Name,
			Start:    r.Start.UTC().Format(time.RFC3339),
			Stop:     r.Stop.UTC().Format(time.RFC3339),
			Location: r.Location,
		})
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	body := gin.H{"error": publicMessage(err, kind), "code": string(kind)}
	if conflicts := domain.ConflictsOf(err); len(conflicts) > 0 {
		body["conflicts"] = conflicts
	}
	c.JSON(status, body)
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindConflict, domain.KindBookingInProgress:
		return http.StatusConflict
	case domain.KindNetworkError, domain.KindServerError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps backend internals out of responses for server-side
// failures while passing through messages the user can act on.
func publicMessage(err error, kind domain.Kind) string {
	switch kind {
	case domain.KindNetworkError, domain.KindServerError, domain.KindUnknown:
		return "the booking service is temporarily unavailable"
	default:
		var de *domain.Error
		if errors.As(err, &de) {
			return de.Message
		}
		return err.Error()
	}
}

func toSessionResponse(sess domain.Session) sessionResponse {
	return sessionResponse{
		UID:       sess.UID,
		Login:     sess.Login,
		Name:      sess.Name,
		PartnerID: sess.PartnerID,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
