/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: handlers.go
Description: Request handlers and wire types for the protodec HTTP API.
*/

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kleascm/protodec/pkg/capture"
	"github.com/kleascm/protodec/pkg/core"
	"github.com/kleascm/protodec/pkg/inference"
	"github.com/kleascm/protodec/pkg/scanner"
	"github.com/kleascm/protodec/pkg/wire"
)

// DecodeRequest is the body of POST /v1/decode.
type DecodeRequest struct {
	// Data is the base64 capture.
	Data string `json:"data" binding:"required"`
	Mode string `json:"mode" binding:"omitempty,oneof=decode scan scan-all"`
	// Schema also infers a schema from the decoded messages.
	Schema bool `json:"schema"`
}

type DecodeResponse struct {
	CaptureID string         `json:"capture_id"`
	Digest    string         `json:"digest"`
	Mode      string         `json:"mode"`
	Spans     []scanner.Span `json:"spans"`
	Dump      string         `json:"dump"`
	Schema    string         `json:"schema,omitempty"`
	Cached    bool           `json:"cached"`
}

// SchemaRequest is the body of POST /v1/schema.
type SchemaRequest struct {
	Samples []string `json:"samples" binding:"required,min=1,dive,required"`
	Mode    string   `json:"mode" binding:"omitempty,oneof=auto structural descriptor"`
	Package string   `json:"package" binding:"omitempty,max=128"`
}

type SchemaResponse struct {
	Mode     string `json:"mode"`
	Messages int    `json:"messages"`
	Schema   string `json:"schema"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Offset *int   `json:"offset,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"stats":  s.engine.Stats(),
	})
}

func (s *Server) handleDecode(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	data, ok := s.decodePayload(c, req.Data)
	if !ok {
		return
	}

	mode, _ := core.ParseMode(req.Mode)
	if req.Mode == "" {
		mode = s.engine.Config().Mode
	}

	result, err := s.engine.Process(c.Request.Context(), capture.New("http", c.ClientIP(), data), mode)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "CANCELED"})
		return
	}
	if result.Err != nil {
		s.writeDecodeError(c, result.Err)
		return
	}

	resp := DecodeResponse{
		CaptureID: result.CaptureID,
		Digest:    result.Digest,
		Mode:      string(result.Mode),
		Spans:     result.Spans,
		Dump:      result.Dump,
		Cached:    result.Cached,
	}
	if req.Schema {
		schema, err := s.engine.Infer(result.Payloads)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "INFERENCE_FAILED"})
			return
		}
		resp.Schema = schema.String()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) writeDecodeError(c *gin.Context, err error) {
	resp := ErrorResponse{Error: err.Error(), Code: "DECODE_FAILED"}
	var perr *wire.ParseError
	switch {
	case errors.As(err, &perr):
		off := perr.Offset
		resp.Offset = &off
		resp.Code = "MALFORMED_MESSAGE"
	case errors.Is(err, core.ErrNoMessage):
		resp.Code = "NO_MESSAGE"
	}
	c.JSON(http.StatusUnprocessableEntity, resp)
}

func (s *Server) handleSchema(c *gin.Context) {
	var req SchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	samples := make([][]byte, 0, len(req.Samples))
	for i, enc := range req.Samples {
		b, ok := s.decodePayload(c, enc)
		if !ok {
			return
		}
		if len(b) == 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("sample %d is empty", i), Code: "INVALID_REQUEST"})
			return
		}
		samples = append(samples, b)
	}

	cfg := s.engine.Config()
	mode := req.Mode
	if mode == "" {
		mode = cfg.InferenceMode
	}
	pkg := req.Package
	if pkg == "" {
		pkg = cfg.Package
	}

	eng := inference.NewEngine(mode, pkg)
	schema, err := eng.InferStructure(samples)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "INFERENCE_FAILED"})
		return
	}
	s.logger.LogSchema(eng.Format(), len(samples), schema.Messages(), map[string]interface{}{"remote": c.ClientIP()})
	c.JSON(http.StatusOK, SchemaResponse{
		Mode:     eng.Format(),
		Messages: schema.Messages(),
		Schema:   schema.String(),
	})
}

// decodePayload base64-decodes a request field, writing a 400 or 413 on failure.
func (s *Server) decodePayload(c *gin.Context, enc string) ([]byte, bool) {
	if s.cfg.MaxBody > 0 && int64(len(enc)) > s.cfg.MaxBody/3*4+4 {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "payload too large", Code: "TOO_LARGE"})
		return nil, false
	}
	b, err := capture.DecodeBase64(enc)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BASE64"})
		return nil, false
	}
	return b, true
}
