package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkrishnan/libraryops/internal/auth"
	"github.com/mkrishnan/libraryops/internal/domain"
	"github.com/mkrishnan/libraryops/internal/service"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "library_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	loansIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_loans_issued_total",
		Help: "Successfully issued loans",
	})

	finesAssessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_fines_assessed_total",
		Help: "Currency units of fines recorded at return time",
	})
)

const dateLayout = "2006-01-02"

type Handler struct {
	catalog     *service.Catalog
	memberships *service.Memberships
	loans       *service.Loans
	auth        *auth.Service
}

func NewHandler(catalog *service.Catalog, memberships *service.Memberships, loans *service.Loans, authSvc *auth.Service) *Handler {
	return &Handler{
		catalog:     catalog,
		memberships: memberships,
		loans:       loans,
		auth:        authSvc,
	}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// --- catalog ---

func (h *Handler) AddItemHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/items"))
	defer timer.ObserveDuration()

	var req struct {
		Kind   string `json:"kind"`
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/items")
		return
	}

	id, err := h.catalog.AddItem(r.Context(), domain.ItemKind(req.Kind), req.Title, req.Author)
	if err != nil {
		respondWithDomainError(w, err, "POST", "/items")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]int64{"id": id}, "POST", "/items")
}

func (h *Handler) SearchItemsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.FindAvailable(r.Context(), r.URL.Query().Get("title"))
	if err != nil {
		respondWithDomainError(w, err, "GET", "/items")
		return
	}
	respondWithJSON(w, http.StatusOK, items, "GET", "/items")
}

// --- memberships ---

func (h *Handler) CreateMembershipHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Duration string `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/memberships")
		return
	}

	id, err := h.memberships.Create(r.Context(), req.Name, domain.MembershipDuration(req.Duration), today())
	if err != nil {
		respondWithDomainError(w, err, "POST", "/memberships")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]int64{"membership_no": id}, "POST", "/memberships")
}

func (h *Handler) ExtendMembershipHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "POST", "/memberships/{id}/extend")
	if !ok {
		return
	}
	newEnd, err := h.memberships.Extend(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err, "POST", "/memberships/{id}/extend")
		return
	}
	respondWithJSON(w, http.StatusOK,
		map[string]string{"end_date": newEnd.Format(dateLayout)}, "POST", "/memberships/{id}/extend")
}

func (h *Handler) CancelMembershipHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "POST", "/memberships/{id}/cancel")
	if !ok {
		return
	}
	if err := h.memberships.Cancel(r.Context(), id); err != nil {
		respondWithDomainError(w, err, "POST", "/memberships/{id}/cancel")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)},
		"POST", "/memberships/{id}/cancel")
}

func (h *Handler) MembershipActiveHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "GET", "/memberships/{id}/active")
	if !ok {
		return
	}
	asOf, err := dateOrToday(r.URL.Query().Get("as_of"))
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "as_of must be YYYY-MM-DD", "GET", "/memberships/{id}/active")
		return
	}
	active, err := h.memberships.IsActive(r.Context(), id, asOf)
	if err != nil {
		respondWithDomainError(w, err, "GET", "/memberships/{id}/active")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"active": active}, "GET", "/memberships/{id}/active")
}

// --- users ---

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/users")
		return
	}

	id, err := h.auth.Register(r.Context(), req.Name, req.Password, domain.Role(req.Role))
	if err != nil {
		respondWithDomainError(w, err, "POST", "/users")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]int64{"id": id}, "POST", "/users")
}

func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", "/users/{name}/password")
		return
	}

	if err := h.auth.ChangePassword(r.Context(), name, req.Password); err != nil {
		respondWithDomainError(w, err, "PUT", "/users/{name}/password")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"}, "PUT", "/users/{name}/password")
}

// --- circulation ---

func (h *Handler) IssueLoanHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/loans"))
	defer timer.ObserveDuration()

	var req domain.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/loans")
		return
	}

	issueDate, err := dateOrToday(req.IssueDate)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "issue_date must be YYYY-MM-DD", "POST", "/loans")
		return
	}
	var requestedDue *time.Time
	if req.DueDate != "" {
		due, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "due_date must be YYYY-MM-DD", "POST", "/loans")
			return
		}
		requestedDue = &due
	}

	id, err := h.loans.Issue(r.Context(), req.ItemID, req.MembershipID, issueDate, requestedDue, req.Remarks)
	if err != nil {
		respondWithDomainError(w, err, "POST", "/loans")
		return
	}

	due := issueDate.AddDate(0, 0, domain.LoanPeriodDays)
	if requestedDue != nil {
		due = *requestedDue
	}
	loansIssuedTotal.Inc()
	respondWithJSON(w, http.StatusCreated, map[string]any{
		"loan_id":  id,
		"due_date": due.Format(dateLayout),
	}, "POST", "/loans")
}

func (h *Handler) ReturnLoanHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/loans/{id}/return"))
	defer timer.ObserveDuration()

	id, ok := pathID(w, r, "POST", "/loans/{id}/return")
	if !ok {
		return
	}
	var req domain.ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/loans/{id}/return")
		return
	}
	returnedAt, err := dateOrToday(req.ReturnDate)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "return_date must be YYYY-MM-DD", "POST", "/loans/{id}/return")
		return
	}

	receipt, err := h.loans.Return(r.Context(), id, returnedAt, req.FinePaid, req.Remarks)
	if err != nil {
		respondWithDomainError(w, err, "POST", "/loans/{id}/return")
		return
	}

	finesAssessedTotal.Add(float64(receipt.Fine))
	respondWithJSON(w, http.StatusOK, receipt, "POST", "/loans/{id}/return")
}

// --- reports ---

func (h *Handler) OverdueReportHandler(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateOrToday(r.URL.Query().Get("as_of"))
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "as_of must be YYYY-MM-DD", "GET", "/reports/overdue")
		return
	}
	loans, err := h.loans.Overdue(r.Context(), asOf)
	if err != nil {
		respondWithDomainError(w, err, "GET", "/reports/overdue")
		return
	}
	respondWithJSON(w, http.StatusOK, loans, "GET", "/reports/overdue")
}

// --- helpers ---

// today is the server-side default for omitted dates: the current UTC
// calendar date.
func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

func dateOrToday(s string) (time.Time, error) {
	if s == "" {
		return today(), nil
	}
	return time.Parse(dateLayout, s)
}

func pathID(w http.ResponseWriter, r *http.Request, method, endpoint string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id", method, endpoint)
		return 0, false
	}
	return id, true
}

// respondWithDomainError maps the error taxonomy onto status codes: input
// policy violations to 422, missing records to 404, an unavailable item to
// 409, an unsettled fine to 402, rejected credentials to 401.
func respondWithDomainError(w http.ResponseWriter, err error, method, endpoint string) {
	var ve *domain.ValidationError
	var fe *domain.UnpaidFineError
	switch {
	case errors.As(err, &ve):
		respondWithError(w, http.StatusUnprocessableEntity, ve.Msg, method, endpoint)
	case errors.As(err, &fe):
		respondWithJSON(w, http.StatusPaymentRequired,
			map[string]any{"error": fe.Error(), "fine": fe.Fine}, method, endpoint)
	case domain.IsNotFound(err):
		respondWithError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrItemUnavailable):
		respondWithError(w, http.StatusConflict, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, err.Error(), method, endpoint)
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

func respondWithError(w http.ResponseWriter, code int, message, method, endpoint string) {
	respondWithJSON(w, code, map[string]string{"error": message}, method, endpoint)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
