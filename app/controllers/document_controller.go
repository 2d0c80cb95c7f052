package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/JeremiasMeza/IA-Rag/app/bootstrap"
	"github.com/JeremiasMeza/IA-Rag/internal/documents"
	"github.com/JeremiasMeza/IA-Rag/internal/vectorindex"
)

// DocumentController 文档入库、检索与删除接口
type DocumentController struct {
	BaseController
}

func (c *DocumentController) manager() *documents.Manager {
	return bootstrap.GetApp().Manager()
}

// QueryRequest 检索请求体
type QueryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	TopK      int    `json:"top_k"`
}

// MatchResponse 检索结果项
type MatchResponse struct {
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
}

// POST /api/documents/upload
func (c *DocumentController) Upload() {
	sessionID, ok := c.getSessionID()
	if !ok {
		c.JSONError(http.StatusBadRequest, "session_id is required")
		return
	}

	file, header, err := c.GetFile("file")
	if err != nil || file == nil {
		c.JSONError(http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	result, err := c.manager().AddDocument(c.Ctx.Request.Context(), sessionID, header.Filename, file)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(result)
}

// POST /api/documents/query
func (c *DocumentController) Query() {
	var req QueryRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		if sessionID, ok := c.getSessionID(); ok {
			req.SessionID = sessionID
		}
	}

	matches, err := c.manager().QueryRelevant(c.Ctx.Request.Context(), req.SessionID, req.Question, req.TopK)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"session_id": req.SessionID,
		"results":    toMatchResponses(matches),
	})
}

// GET /api/documents
func (c *DocumentController) List() {
	sessionID, ok := c.getSessionID()
	if !ok {
		c.JSONError(http.StatusBadRequest, "session_id is required")
		return
	}

	docs, err := c.manager().ListDocuments(c.Ctx.Request.Context(), sessionID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"session_id": sessionID,
		"documents":  docs,
	})
}

// DELETE /api/documents/:filename
func (c *DocumentController) Delete() {
	sessionID, ok := c.getSessionID()
	if !ok {
		c.JSONError(http.StatusBadRequest, "session_id is required")
		return
	}
	filename := c.Ctx.Input.Param(":filename")
	if filename == "" {
		c.JSONError(http.StatusBadRequest, "filename is required")
		return
	}

	deleted, err := c.manager().DeleteDocument(c.Ctx.Request.Context(), sessionID, filename)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"filename":       filename,
		"chunks_deleted": deleted,
	})
}

func toMatchResponses(matches []vectorindex.Match) []MatchResponse {
	out := make([]MatchResponse, 0, len(matches))
	for _, match := range matches {
		out = append(out, MatchResponse{
			Content:    match.Text,
			Score:      match.Score,
			Source:     match.Meta.Source,
			ChunkIndex: match.Meta.ChunkIndex,
		})
	}
	return out
}
