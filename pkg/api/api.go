package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"blogcomments/pkg/models"
	"blogcomments/pkg/storage"
)

// DefaultPageSize is the fixed window for top-level comment and reply pages.
const DefaultPageSize = 5

type Config struct {
	ServiceName string
	PageSize    int
	JWTSecret   string
}

type API struct {
	r           *mux.Router
	db          storage.Storage
	kw          *kafka.Writer
	serviceName string
	pageSize    int
	jwtSecret   []byte
}

func New(db storage.Storage, conf Config, kafkaWriter *kafka.Writer) *API {
	api := API{
		r:           mux.NewRouter(),
		db:          db,
		kw:          kafkaWriter,
		serviceName: conf.ServiceName,
		pageSize:    conf.PageSize,
		jwtSecret:   []byte(conf.JWTSecret),
	}
	if api.pageSize <= 0 {
		api.pageSize = DefaultPageSize
	}
	api.endpoints()

	return &api
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	api.r.Use(api.headerMiddleware)

	if api.kw != nil {
		api.r.Use(api.loggingMiddleware(api.kw))
	}

	api.r.Handle("/add-comment", api.authMiddleware(http.HandlerFunc(api.addCommentHandler))).Methods(http.MethodPost)
	api.r.HandleFunc("/get-blog-comments", api.blogCommentsHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/get-replies", api.repliesHandler).Methods(http.MethodPost)
	api.r.Handle("/delete-comments", api.authMiddleware(http.HandlerFunc(api.deleteCommentsHandler))).Methods(http.MethodPost)
	api.r.HandleFunc("/activity/{id:[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$}", api.activityHandler).Methods(http.MethodGet)
}

func (api *API) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("[addCommentHandler][%s] failed to decode request body: %v", sID, err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	comment := models.Comment{
		PostID:       req.PostID,
		PostAuthorID: req.PostAuthorID,
		AuthorID:     GetUserID(r.Context()),
		Body:         req.Body,
		ParentID:     req.ParentID,
	}

	created, err := api.db.CreateComment(r.Context(), comment, req.NotificationID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyBody), errors.Is(err, storage.ErrPostIDNotProvided):
			log.Debugf("[addCommentHandler][%s] invalid comment: %v", sID, err)
			http.Error(w, "Write something to leave a comment", http.StatusBadRequest)
		case errors.Is(err, storage.ErrParentCommentNotFound):
			log.Debugf("[addCommentHandler][%s] parent comment not found: %v", sID, err)
			http.Error(w, "Parent comment not found", http.StatusNotFound)
		default:
			log.Errorf("[addCommentHandler][%s] CreateComment() returned error: %v", sID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	resp := AddCommentResponse{
		ID:        created.ID,
		AuthorID:  created.AuthorID,
		Comment:   created.Body,
		CreatedAt: created.Published,
		ChildIDs:  created.ChildIDs,
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("[addCommentHandler][%s] failed to encode response data: %v", sID, err)
		return
	}
	log.Debugf("[addCommentHandler][%s] comment %v created", sID, created.ID)
}

func (api *API) blogCommentsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var req BlogCommentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("[blogCommentsHandler][%s] failed to decode request body: %v", sID, err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	comments, err := api.db.TopLevelComments(r.Context(), req.PostID, req.Skip, api.pageSize)
	if err != nil {
		if errors.Is(err, storage.ErrPostIDNotProvided) {
			log.Debugf("[blogCommentsHandler][%s] missing post ID", sID)
			http.Error(w, "Missing postId", http.StatusBadRequest)
			return
		}
		log.Errorf("[blogCommentsHandler][%s] TopLevelComments() returned error: %v", sID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(comments); err != nil {
		log.Errorf("[blogCommentsHandler][%s] failed to encode response data: %v", sID, err)
		return
	}
	log.Debugf("[blogCommentsHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}

func (api *API) repliesHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var req RepliesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("[repliesHandler][%s] failed to decode request body: %v", sID, err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	replies, err := api.db.Replies(r.Context(), req.CommentID, req.Skip, api.pageSize)
	if err != nil {
		if errors.Is(err, storage.ErrCommentNotFound) {
			log.Debugf("[repliesHandler][%s] comment %v not found", sID, req.CommentID)
			http.Error(w, "Comment not found", http.StatusNotFound)
			return
		}
		log.Errorf("[repliesHandler][%s] Replies() returned error: %v", sID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(RepliesResponse{Replies: replies}); err != nil {
		log.Errorf("[repliesHandler][%s] failed to encode response data: %v", sID, err)
		return
	}
	log.Debugf("[repliesHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}

func (api *API) deleteCommentsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var req DeleteCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("[deleteCommentsHandler][%s] failed to decode request body: %v", sID, err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	err := api.db.DeleteComment(r.Context(), req.CommentID, GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrCommentNotFound):
			log.Debugf("[deleteCommentsHandler][%s] comment %v not found", sID, req.CommentID)
			http.Error(w, "Comment not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrNotAuthorized):
			log.Debugf("[deleteCommentsHandler][%s] unauthorized delete of %v", sID, req.CommentID)
			http.Error(w, "You are not authorized to delete this comment", http.StatusForbidden)
		default:
			log.Errorf("[deleteCommentsHandler][%s] DeleteComment() returned error: %v", sID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Comment deleted successfully"})
	log.Debugf("[deleteCommentsHandler][%s] comment %v deleted", sID, req.CommentID)
}

func (api *API) activityHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	idStr := mux.Vars(r)["id"]
	id, err := uuid.FromString(idStr)
	if err != nil {
		log.Debugf("[activityHandler][%s] failed to parse post ID: %v", sID, err)
		http.Error(w, "Invalid UUID parameter", http.StatusBadRequest)
		return
	}

	act, err := api.db.Activity(r.Context(), id)
	if err != nil {
		log.Errorf("[activityHandler][%s] Activity() returned error: %v", sID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(act); err != nil {
		log.Errorf("[activityHandler][%s] failed to encode response data: %v", sID, err)
		return
	}
	log.Debugf("[activityHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
