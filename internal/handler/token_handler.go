package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"callrelay/internal/app/credential"
	"callrelay/internal/pkg/errs"
	"callrelay/internal/pkg/randx"
	"callrelay/internal/pkg/resp"
)

// TokenResponse is the body of a successful GET /token.
type TokenResponse struct {
	Token string `json:"token"`
}

type tokenRequest struct {
	channel string
	uid     uint32
	role    credential.Role
	ttl     time.Duration
}

// parseTokenQuery validates channel, uid, role and ttl. An absent or zero ttl
// selects defaultTTL; anything above maxTTL is capped.
func parseTokenQuery(r *http.Request, defaultTTL, maxTTL time.Duration) (tokenRequest, *errs.CustomError) {
	q := r.URL.Query()

	channel := q.Get("channel")
	if channel == "" {
		return tokenRequest{}, errs.NewError(errs.ErrChannelRequired)
	}
	if !randx.IsValidChannel(channel) {
		return tokenRequest{}, errs.NewError(errs.ErrChannelInvalid)
	}

	var uid uint32
	if s := q.Get("uid"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return tokenRequest{}, errs.NewError(errs.ErrInvalidParams)
		}
		uid = uint32(n)
	}

	role, err := credential.ParseRole(q.Get("role"))
	if err != nil {
		return tokenRequest{}, errs.NewError(errs.ErrRoleInvalid)
	}

	ttl := defaultTTL
	if s := q.Get("ttl"); s != "" {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil || secs < 0 {
			return tokenRequest{}, errs.NewError(errs.ErrTTLInvalid)
		}
		if secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}
	if maxTTL > 0 && ttl > maxTTL {
		ttl = maxTTL
	}

	return tokenRequest{channel: channel, uid: uid, role: role, ttl: ttl}, nil
}

// HandleToken mints a media channel credential.
func HandleToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, cerr := parseTokenQuery(r, deps.Config.TokenDefaultTTL, deps.Config.TokenMaxTTL)
		if cerr != nil {
			resp.RespondFlatError(w, r, cerr)
			return
		}

		token, err := deps.Issuer.Issue(params.channel, params.uid, params.role, params.ttl)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("channel", params.channel).Msg("Failed to issue token")
			resp.RespondFlatError(w, r, errs.NewError(errs.ErrCredentialIssue))
			return
		}

		zerolog.Ctx(r.Context()).Debug().
			Str("channel", params.channel).
			Str("role", string(params.role)).
			Dur("ttl", params.ttl).
			Msg("Token issued")

		resp.RespondFlat(w, r, TokenResponse{Token: token})
	}
}
