package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/myagiz61/backend/internal/domain/model"
)

type packageView struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	DisplayName  string          `json:"displayName"`
	Kind         string          `json:"kind"`
	DurationDays int             `json:"durationDays"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
}

func toPackageViews(pkgs []*model.Package) []packageView {
	out := make([]packageView, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, packageView{
			ID:           p.ID,
			Name:         p.Name,
			DisplayName:  p.DisplayName(),
			Kind:         string(p.Kind),
			DurationDays: p.DurationDays,
			Price:        p.Price,
			Currency:     model.Currency,
		})
	}
	return out
}

type notificationView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type paymentView struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}
