package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/oracle"
	"github.com/mselser95/updown-rounds/internal/permit"
	"github.com/mselser95/updown-rounds/internal/prediction"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// FaucetRequest is the body of POST /api/v1/dev/faucet.
type FaucetRequest struct {
	Address common.Address `json:"address"`
	Amount  string         `json:"amount"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.market.QueryConfig(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.market.QueryState(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.market.QueryPrice(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, price)
}

func (s *Server) handleCurrentRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.market.QueryCurrentRound(r.Context(), s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, round)
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	epoch, ok := s.epochParam(w, r)
	if !ok {
		return
	}

	round, err := s.market.QueryRound(r.Context(), epoch, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, round)
}

// handleBet serves GET /api/v1/bets/{epoch}?user=<address>&key=<viewing key>.
func (s *Server) handleBet(w http.ResponseWriter, r *http.Request) {
	epoch, ok := s.epochParam(w, r)
	if !ok {
		return
	}

	user := r.URL.Query().Get("user")
	if !common.IsHexAddress(user) {
		s.writeMessage(w, http.StatusBadRequest, "query parameter user must be an address")
		return
	}

	bet, err := s.market.QueryBet(r.Context(), epoch, common.HexToAddress(user), r.URL.Query().Get("key"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bet)
}

// handleBetWithPermit serves POST /api/v1/bets/{epoch}/permit with a signed
// permit as the body.
func (s *Server) handleBetWithPermit(w http.ResponseWriter, r *http.Request) {
	epoch, ok := s.epochParam(w, r)
	if !ok {
		return
	}

	var p permit.Permit
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p)
	if err != nil {
		s.writeMessage(w, http.StatusBadRequest, "invalid permit: "+err.Error())
		return
	}

	bet, err := s.market.QueryBetWithPermit(r.Context(), p, epoch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bet)
}

// handleTx executes one signed operation on behalf of the signer.
func (s *Server) handleTx(w http.ResponseWriter, r *http.Request) {
	var req TxRequest
	signer, err := s.authenticate(w, r, &req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	op, err := req.Msg.Operation()
	if err != nil {
		s.writeError(w, err)
		return
	}
	funds, err := req.Coins()
	if err != nil {
		s.writeError(w, err)
		return
	}

	env := prediction.Env{
		Contract: s.contract,
		Sender:   signer,
		Time:     s.now(),
		Height:   s.height.Add(1),
		Funds:    funds,
	}

	resp, err := s.market.Execute(r.Context(), env, op)
	if err != nil {
		s.logger.Debug("tx-rejected",
			zap.String("sender", signer.Hex()),
			zap.Error(err))
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleFeedPrice accepts a price signed by the oracle feeder.
func (s *Server) handleFeedPrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	signer, err := s.authenticate(w, r, &req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	updated := req.UpdatedAt
	if updated == 0 {
		updated = s.now()
	}

	err = s.feed.FeedPrice(signer, req.Asset, req.Price, updated)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKeeper(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.keeper.Status())
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req FaucetRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil {
		s.writeMessage(w, http.StatusBadRequest, "invalid faucet request: "+err.Error())
		return
	}

	amount, err := uint256.FromDecimal(req.Amount)
	if err != nil || amount.IsZero() {
		s.writeMessage(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	err = s.faucet.Mint(s.faucetFor, req.Address, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("faucet-minted",
		zap.String("address", req.Address.Hex()),
		zap.String("amount", amount.Dec()))

	w.WriteHeader(http.StatusNoContent)
}

// authenticate reads a signed body into dst and returns the signer. The
// signer must match the body's sender, the timestamp must be within the
// skew window and the signature must not have been seen before.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, dst any) (common.Address, error) {
	sig := strings.TrimSpace(r.Header.Get(SignatureHeader))
	if sig == "" {
		return common.Address{}, errMissingSignature
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: read body: %v", types.ErrInvalidPayload, err)
	}

	signer, err := permit.RecoverSigner(body, sig)
	if err != nil {
		return common.Address{}, err
	}

	var env Envelope
	err = json.Unmarshal(body, &env)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", types.ErrInvalidPayload, err)
	}
	if env.Sender != signer {
		return common.Address{}, errSignerMismatch
	}
	if !env.fresh(s.clock(), s.txMaxSkew) {
		return common.Address{}, errStaleRequest
	}

	err = s.markSeen(sig)
	if err != nil {
		return common.Address{}, err
	}

	err = json.Unmarshal(body, dst)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", types.ErrInvalidPayload, err)
	}

	return signer, nil
}

// markSeen rejects a signature already accepted inside the skew window.
func (s *Server) markSeen(sig string) error {
	if s.replay == nil {
		return nil
	}

	key := "sig:" + strings.ToLower(sig)
	if _, ok := s.replay.Get(key); ok {
		return errReplayed
	}
	s.replay.Set(key, true, 2*s.txMaxSkew)
	if w, ok := s.replay.(interface{ Wait() }); ok {
		w.Wait()
	}
	return nil
}

func (s *Server) epochParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "epoch")
	epoch, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid epoch %q", raw))
		return 0, false
	}
	return epoch, true
}

func (s *Server) now() uint64 {
	return uint64(s.clock().Unix())
}

// statusFor maps an engine or request error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errReplayed):
		return http.StatusConflict
	case errors.Is(err, errMissingSignature),
		errors.Is(err, errSignerMismatch),
		errors.Is(err, errStaleRequest),
		errors.Is(err, permit.ErrBadSignature):
		return http.StatusUnauthorized
	case errors.Is(err, oracle.ErrUnauthorizedFeeder):
		return http.StatusForbidden
	case errors.Is(err, oracle.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, oracle.ErrAssetNotRegistered), errors.Is(err, oracle.ErrNoPrice):
		return http.StatusNotFound
	}

	switch types.Kind(err) {
	case types.KindValidation:
		return http.StatusBadRequest
	case types.KindAuthentication:
		return http.StatusUnauthorized
	case types.KindAuthorization:
		return http.StatusForbidden
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindState:
		return http.StatusConflict
	case types.KindEconomic:
		return http.StatusUnprocessableEntity
	case types.KindInconsistent:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request-failed", zap.Error(err))
	}

	resp := ErrorResponse{Error: err.Error()}
	if kind := types.Kind(err); kind != types.KindUnknown {
		resp.Kind = kind.String()
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeMessage(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}
