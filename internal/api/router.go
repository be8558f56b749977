package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkrishnan/libraryops/internal/domain"
)

// NewRouter wires the full HTTP surface. Admin-only operations are gated
// by capability, circulation and reports are open to any authenticated
// caller, health and metrics are open.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/items", h.requireCap(domain.CapManageCatalog, h.AddItemHandler)).Methods("POST")
	v1.HandleFunc("/items", h.withAuth(h.SearchItemsHandler)).Methods("GET")

	v1.HandleFunc("/memberships", h.requireCap(domain.CapManageMemberships, h.CreateMembershipHandler)).Methods("POST")
	v1.HandleFunc("/memberships/{id}/extend", h.requireCap(domain.CapManageMemberships, h.ExtendMembershipHandler)).Methods("POST")
	v1.HandleFunc("/memberships/{id}/cancel", h.requireCap(domain.CapManageMemberships, h.CancelMembershipHandler)).Methods("POST")
	v1.HandleFunc("/memberships/{id}/active", h.withAuth(h.MembershipActiveHandler)).Methods("GET")

	v1.HandleFunc("/users", h.requireCap(domain.CapManageUsers, h.CreateUserHandler)).Methods("POST")
	v1.HandleFunc("/users/{name}/password", h.requireCap(domain.CapManageUsers, h.ChangePasswordHandler)).Methods("PUT")

	v1.HandleFunc("/loans", h.requireCap(domain.CapCirculate, h.IssueLoanHandler)).Methods("POST")
	v1.HandleFunc("/loans/{id}/return", h.requireCap(domain.CapCirculate, h.ReturnLoanHandler)).Methods("POST")

	v1.HandleFunc("/reports/overdue", h.requireCap(domain.CapViewReports, h.OverdueReportHandler)).Methods("GET")

	return r
}
