// Package imitate serves DeepSeek chat through an OpenAI-compatible API.
package imitate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/linweiyuan/go-logger/logger"

	"github.com/maxduke/go-deepseek-api/api"
	"github.com/maxduke/go-deepseek-api/api/deepseek"
	"github.com/maxduke/go-deepseek-api/pow"
	"github.com/maxduke/go-deepseek-api/prompt"
)

var reg = regexp.MustCompile("[^a-zA-Z0-9]+")

// Completer is satisfied by *deepseek.Client.
type Completer interface {
	Completion(ctx context.Context, messages []prompt.Message, opts deepseek.Options) (string, error)
	CompletionStream(ctx context.Context, messages []prompt.Message, opts deepseek.Options) (*deepseek.Stream, error)
}

type Handler struct {
	client Completer
	apiKey string
	now    func() time.Time
}

// NewHandler returns the front for client. When apiKey is set, callers must
// present it and the configured DeepSeek token is used; otherwise the
// caller's bearer is forwarded as the DeepSeek token.
func NewHandler(client Completer, apiKey string) *Handler {
	return &Handler{
		client: client,
		apiKey: apiKey,
		now:    time.Now,
	}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/v1/chat/completions", h.CreateChatCompletions)
	r.GET("/v1/models", h.ListModels)
}

func (h *Handler) CreateChatCompletions(c *gin.Context) {
	var request APIRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Request must be proper JSON", "invalid_request_error", err.Error()))
		return
	}

	token, ok := h.resolveToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody("API KEY is missing or invalid", "invalid_request_error", "401"))
		return
	}

	if request.Model == "" {
		request.Model = ModelChat
	}
	opts := deepseek.Options{
		Token:           token,
		ThinkingEnabled: request.Model == ModelReasoner,
	}
	if request.ThinkingEnabled != nil {
		opts.ThinkingEnabled = *request.ThinkingEnabled
	}
	if request.SearchEnabled != nil {
		opts.SearchEnabled = *request.SearchEnabled
	}

	id := generateId()
	if request.Stream {
		h.stream(c, request, opts, id)
		return
	}

	text, err := h.client.Completion(c.Request.Context(), request.promptMessages(), opts)
	if err != nil && !errors.Is(err, deepseek.ErrSessionCleanup) {
		handleError(c, err)
		return
	}
	if err != nil {
		logger.Error(fmt.Sprintf("completion %s: %v", id, err))
	}
	c.JSON(http.StatusOK, h.newChatCompletion(text, request.Model, id))
}

func (h *Handler) stream(c *gin.Context, request APIRequest, opts deepseek.Options, id string) {
	stream, err := h.client.CompletionStream(c.Request.Context(), request.promptMessages(), opts)
	if err != nil {
		handleError(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	isRole := true
	for stream.Next() {
		chunk := h.newChatCompletionChunk(stream.Text(), request.Model, id)
		if isRole {
			chunk.Choices[0].Delta.Role = prompt.RoleAssistant
			isRole = false
		}
		if _, err := c.Writer.WriteString("data: " + chunk.String() + "\n\n"); err != nil {
			logger.Error(fmt.Sprintf("completion %s: client went away: %v", id, err))
			return
		}
		c.Writer.Flush()
	}

	finishReason := "stop"
	if err := stream.Err(); err != nil {
		logger.Error(fmt.Sprintf("completion %s: %v", id, err))
		if !errors.Is(err, deepseek.ErrSessionCleanup) {
			finishReason = "error"
		}
	}
	final := h.stopChunk(finishReason, request.Model, id)
	c.Writer.WriteString("data: " + final.String() + "\n\n")
	c.Writer.WriteString("data: [DONE]\n\n")
	c.Writer.Flush()
}

func (h *Handler) ListModels(c *gin.Context) {
	created := h.now().Unix()
	list := ModelList{Object: "list"}
	for _, id := range []string{ModelChat, ModelReasoner} {
		list.Data = append(list.Data, Model{ID: id, Object: "model", Created: created, OwnedBy: "deepseek"})
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) resolveToken(c *gin.Context) (string, bool) {
	bearer := api.GetAccessToken(c)
	if h.apiKey == "" {
		return bearer, true
	}
	if bearer != h.apiKey {
		return "", false
	}
	return "", true
}

func handleError(c *gin.Context, err error) {
	var ce *deepseek.ConfigError
	switch {
	case errors.As(err, &ce):
		c.JSON(http.StatusUnauthorized, errorBody("API KEY is missing or invalid", "invalid_request_error", err.Error()))
	case errors.Is(err, context.Canceled):
		c.Abort()
	case deepseek.IsServiceError(err),
		errors.Is(err, deepseek.ErrChallengeUnsolved),
		errors.Is(err, deepseek.ErrStreamBroken),
		errors.Is(err, pow.ErrUnsupportedAlgorithm):
		c.JSON(http.StatusBadGateway, errorBody(err.Error(), "upstream_error", "502"))
	default:
		c.JSON(http.StatusInternalServerError, api.ReturnMessage(err.Error()))
	}
}

func errorBody(message, kind, code string) gin.H {
	return gin.H{"error": gin.H{
		"message": message,
		"type":    kind,
		"param":   nil,
		"code":    code,
	}}
}

func generateId() string {
	id := uuid.NewString()
	id = strings.ReplaceAll(id, "-", "")
	id = base64.StdEncoding.EncodeToString([]byte(id))
	id = reg.ReplaceAllString(id, "")
	return "chatcmpl-" + id
}

func (h *Handler) newChatCompletion(text, model, id string) ChatCompletion {
	return ChatCompletion{
		ID:      id,
		Object:  "chat.completion",
		Created: h.now().Unix(),
		Model:   model,
		Choices: []Choice{{
			Index:        0,
			Message:      Msg{Role: prompt.RoleAssistant, Content: text},
			FinishReason: "stop",
		}},
	}
}

func (h *Handler) newChatCompletionChunk(text, model, id string) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: h.now().Unix(),
		Model:   model,
		Choices: []ChunkChoice{{
			Index: 0,
			Delta: Delta{Content: text},
		}},
	}
}

func (h *Handler) stopChunk(reason, model, id string) ChatCompletionChunk {
	chunk := h.newChatCompletionChunk("", model, id)
	chunk.Choices[0].FinishReason = &reason
	return chunk
}
