package api

import (
	"net/http"
	"strings"

	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/infra/logging"
)

// handleCallback answers the provider's browser redirect. It never returns an
// error body; every path ends in a web or deep-link redirect.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	token, platform := callbackParams(r)

	ctx := r.Context()
	res, err := s.deps.Payments.HandleCallback(ctx, model.IncomingCallback{Token: token, Platform: platform})
	if err != nil {
		logging.With(ctx, s.log).Error().Err(err).Msg("callback handling failed")
	}

	ok, pid := false, ""
	if res != nil {
		ok, pid = res.Outcome.Successful(), res.PaymentID
		logging.With(ctx, s.log).Info().
			Str("payment_id", pid).
			Str("outcome", string(res.Outcome)).
			Str("platform", string(platform)).
			Msg("callback handled")
	}
	http.Redirect(w, r, s.redirectTarget(platform, ok, pid), http.StatusFound)
}

func (s *Server) redirectTarget(platform model.Platform, ok bool, pid string) string {
	if platform == model.PlatformIOS || platform == model.PlatformAndroid {
		return s.deepLink(ok, pid)
	}
	if ok {
		return s.successURL(pid)
	}
	return s.failureURL()
}

// callbackParams reads token and platform from the query string or a form body.
func callbackParams(r *http.Request) (string, model.Platform) {
	_ = r.ParseForm()
	token := strings.TrimSpace(r.FormValue("token"))
	switch p := model.Platform(strings.ToLower(strings.TrimSpace(r.FormValue("platform")))); p {
	case model.PlatformIOS, model.PlatformAndroid:
		return token, p
	default:
		return token, model.PlatformWeb
	}
}
