package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/usecase"
)

func (req purchaseRequest) toUseCase() (usecase.PurchaseRequest, error) {
	if req.ListingID != "" {
		if err := uuid.Validate(req.ListingID); err != nil {
			return usecase.PurchaseRequest{}, &validationError{
				msg:    "request validation failed",
				fields: []FieldError{{Field: "listingId", Tag: "uuid", Message: "listingId must be a valid id"}},
			}
		}
	}
	return usecase.PurchaseRequest{
		Type:      strings.ToLower(req.Type),
		Plan:      strings.ToLower(strings.TrimSpace(req.Plan)),
		Duration:  strings.TrimSpace(req.Duration),
		ListingID: req.ListingID,
		Platform:  model.Platform(req.Platform),
	}, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var body purchaseRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	req, err := body.toUseCase()
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	q, err := s.deps.Catalog.Preview(r.Context(), req)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var body purchaseRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	req, err := body.toUseCase()
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out, err := s.deps.Payments.Checkout(r.Context(), usecase.CheckoutInput{
		UserID:   userID(r),
		ClientIP: clientIP(r),
		Request:  req,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleVerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var body receiptRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	platform := model.Platform(body.Platform)
	if platform == "" {
		platform = model.PlatformIOS
	}
	res, err := s.deps.Receipts.Verify(r.Context(), model.ReceiptPurchase{
		UserID:      userID(r),
		ReceiptData: body.ReceiptData,
		ProductID:   body.ProductID,
		ListingID:   body.ListingID,
		Platform:    platform,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEntitlementStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Entitlements.Status(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListingQuota(w http.ResponseWriter, r *http.Request) {
	q, err := s.deps.Entitlements.CheckListingQuota(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleListMemberships(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.deps.Catalog.ListMemberships(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageViews(pkgs))
}

func (s *Server) handleListBoosts(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.deps.Catalog.ListBoosts(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageViews(pkgs))
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, err := s.deps.Notifications.List(r.Context(), userID(r), limit)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]notificationView, 0, len(items))
	for _, n := range items {
		out = append(out, notificationView{ID: n.ID, Title: n.Title, Message: n.Message, IsRead: n.IsRead, CreatedAt: n.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Notifications.MarkRead(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleManualInit(w http.ResponseWriter, r *http.Request) {
	var body manualInitRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	p, err := s.deps.Payments.InitManual(r.Context(), body.UserID, body.Package)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentView{ID: p.ID, Status: string(p.Status), Amount: p.Amount.StringFixed(2), Currency: p.Currency})
}

func (s *Server) handleManualConfirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		writeError(w, r, s.log, domain.Validation("INVALID_PAYMENT_ID", "payment id is invalid"))
		return
	}
	res, err := s.deps.Payments.ConfirmManual(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"paymentId": res.PaymentID, "outcome": string(res.Outcome)})
}
