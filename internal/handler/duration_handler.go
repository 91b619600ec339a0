package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"callrelay/internal/app/history"
	"callrelay/internal/pkg/errs"
	"callrelay/internal/pkg/req"
	"callrelay/internal/pkg/resp"
)

// ChannelRequest is the body of the call-duration endpoints.
type ChannelRequest struct {
	Channel string `json:"channel"`
}

// MessageResponse is a flat acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

func bindChannel(w http.ResponseWriter, r *http.Request) (string, *errs.CustomError) {
	var body ChannelRequest
	if cerr := req.BindJSON(w, r, &body); cerr != nil {
		return "", cerr
	}
	if body.Channel == "" {
		return "", errs.NewError(errs.ErrChannelRequired)
	}
	return body.Channel, nil
}

// HandleCallDuration returns the duration record of a channel. A call still in
// progress reports the seconds elapsed so far.
func HandleCallDuration(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel, cerr := bindChannel(w, r)
		if cerr != nil {
			resp.RespondFlatError(w, r, cerr)
			return
		}

		rec, err := deps.History.Get(r.Context(), channel)
		if errors.Is(err, history.ErrNotFound) {
			resp.RespondFlatError(w, r, errs.NewError(errs.ErrRecordNotFound))
			return
		}
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("channel", channel).Msg("Failed to read call duration")
			resp.RespondFlatError(w, r, errs.NewError(errs.ErrHistoryUnavailable))
			return
		}

		resp.RespondFlat(w, r, rec.Elapsed(deps.clock().Now()))
	}
}

// HandleResetCallDuration deletes the duration record of a channel.
func HandleResetCallDuration(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel, cerr := bindChannel(w, r)
		if cerr != nil {
			resp.RespondFlatError(w, r, cerr)
			return
		}

		if err := deps.History.Reset(r.Context(), channel); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("channel", channel).Msg("Failed to reset call duration")
			resp.RespondFlatError(w, r, errs.NewError(errs.ErrHistoryUnavailable))
			return
		}

		resp.RespondFlat(w, r, MessageResponse{Message: "Call duration reset."})
	}
}
