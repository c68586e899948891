// Package transport exposes the messaging core over HTTP and WebSocket.
package transport

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dmcore/domain"
	"dmcore/errors"
	"dmcore/search"
	"dmcore/services"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type Handler struct {
	log            *slog.Logger
	auth           services.IAuthService
	dm             services.IDMService
	index          *search.Index // nil disables /search
	allowedOrigins []string
	newController  controllerFactory
}

func NewHandler(log *slog.Logger, auth services.IAuthService, dm services.IDMService,
	index *search.Index, allowedOrigins []string, newController controllerFactory) *Handler {
	return &Handler{
		log:            log,
		auth:           auth,
		dm:             dm,
		index:          index,
		allowedOrigins: allowedOrigins,
		newController:  newController,
	}
}

// Router wires all routes and the CORS middleware.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/register", h.HandleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", h.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/peers", h.withViewer(h.HandlePeers)).Methods(http.MethodGet)
	r.HandleFunc("/channels/{peer}/messages", h.withViewer(h.HandleHistory)).Methods(http.MethodGet)
	r.HandleFunc("/channels/{peer}/messages", h.withViewer(h.HandleSend)).Methods(http.MethodPost)
	r.HandleFunc("/search", h.withViewer(h.HandleSearch)).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r)
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token       string `json:"token"`
	Participant string `json:"participant,omitempty"`
}

type sendRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	ID       string    `json:"id"`
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}

type peerResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, peer, err := h.auth.Register(req.Email, req.DisplayName, req.Password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: string(token), Participant: string(peer.ID)})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: string(token)})
}

func (h *Handler) HandlePeers(w http.ResponseWriter, r *http.Request, viewer domain.Participant) {
	peers, err := h.dm.Peers(viewer)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]peerResponse, 0, len(peers))
	for _, peer := range peers {
		out = append(out, peerResponse{ID: string(peer.ID), DisplayName: peer.DisplayName, AvatarURL: peer.AvatarURL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request, viewer domain.Participant) {
	peer := domain.Participant(mux.Vars(r)["peer"])
	messages, err := h.dm.History(viewer, peer)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponses(messages))
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request, viewer domain.Participant) {
	peer := domain.Participant(mux.Vars(r)["peer"])
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	msg, err := h.dm.SendTo(r.Context(), viewer, peer, req.Text)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageResponse(msg))
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request, viewer domain.Participant) {
	if h.index == nil {
		writeError(w, http.StatusNotImplemented, stderrors.New("search disabled"))
		return
	}
	query := search.ParseQuery(r.URL.Query().Get("q"))
	if peer := r.URL.Query().Get("peer"); peer != "" {
		channel, err := domain.ResolveChannel(viewer, domain.Participant(peer))
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		query.Channel = channel
	}
	hits, err := h.index.Search(r.Context(), query)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

type viewerHandler func(w http.ResponseWriter, r *http.Request, viewer domain.Participant)

// withViewer resolves the session token into the participant identity.
// Tokens come from the Authorization header, or from a query parameter for
// clients that cannot set headers (browser WebSocket).
func (h *Handler) withViewer(next viewerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := h.identify(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r, viewer)
	}
}

func (h *Handler) identify(r *http.Request) (domain.Participant, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return h.auth.Identify(token)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, errors.ErrEmptyMessage),
		stderrors.Is(err, errors.ErrMessageTooLong),
		stderrors.Is(err, errors.ErrInvalidParticipant),
		stderrors.Is(err, errors.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, err)
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, err)
	case stderrors.Is(err, errors.ErrStoreUnavailable):
		// Transient: the client may retry the same request
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.log.Error("Unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func toMessageResponse(msg domain.Message) messageResponse {
	return messageResponse{
		ID:       msg.ID.String(),
		Sender:   string(msg.Sender),
		Receiver: string(msg.Receiver),
		Text:     msg.Text,
		SentAt:   msg.SentAt,
	}
}

func toMessageResponses(messages []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, toMessageResponse(msg))
	}
	return out
}
