package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"go-landing-studio/internal/composer"
	"go-landing-studio/internal/content"
	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/model"
	"go-landing-studio/internal/store"
)

// pageInput 为 API 写入的记录；translations 接受上游形态，缺失字段由默认值补齐。
type pageInput struct {
	Slug             string                      `json:"slug"`
	ProductName      string                      `json:"productName"`
	ImageURL         string                      `json:"imageUrl"`
	AdditionalImages []string                    `json:"additionalImages"`
	BuyLink          string                      `json:"buyLink"`
	BaseLanguage     string                      `json:"baseLanguage"`
	Niche            string                      `json:"niche"`
	TargetAudience   string                      `json:"targetAudience"`
	Tone             string                      `json:"tone"`
	Translations     map[string]model.RawContent `json:"translations"`
}

func (in pageInput) record() (model.LandingRecord, error) {
	name := strings.TrimSpace(in.ProductName)
	if name == "" {
		return model.LandingRecord{}, fmt.Errorf("%w: productName is required", errBadRequest)
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = composer.Slug(name)
	}
	base := strings.TrimSpace(in.BaseLanguage)
	if base == "" {
		base = locale.Fallback
	}
	images := in.AdditionalImages
	if images == nil {
		images = []string{}
	}
	return model.LandingRecord{
		Slug:             slug,
		ProductName:      name,
		ImageURL:         in.ImageURL,
		AdditionalImages: images,
		BuyLink:          in.BuyLink,
		BaseLanguage:     base,
		Niche:            in.Niche,
		TargetAudience:   in.TargetAudience,
		Tone:             in.Tone,
		Translations:     content.Migrate(in.Translations),
	}, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	recs := s.app.Records()
	if recs == nil {
		recs = []model.LandingRecord{}
	}
	s.sendSuccess(w, http.StatusOK, "", recs)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec := s.app.ByID(id)
	if rec == nil {
		rec = s.app.BySlug(id)
	}
	if rec == nil {
		s.sendError(w, fmt.Errorf("get page %s: %w", id, store.ErrNotFound))
		return
	}
	s.sendSuccess(w, http.StatusOK, "", rec)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var in pageInput
	if err := decodeBody(r, &in); err != nil {
		s.sendError(w, err)
		return
	}
	rec, err := in.record()
	if err != nil {
		s.sendError(w, err)
		return
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.opts.Now().UTC()
	if err := s.app.Add(r.Context(), rec); err != nil {
		s.sendError(w, err)
		return
	}
	s.sendSuccess(w, http.StatusCreated, "created", rec)
}

// handleUpdatePage 覆盖全部可变字段；createdAt 保持不变。
func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing := s.app.ByID(id)
	if existing == nil {
		s.sendError(w, fmt.Errorf("update page %s: %w", id, store.ErrNotFound))
		return
	}
	var in pageInput
	if err := decodeBody(r, &in); err != nil {
		s.sendError(w, err)
		return
	}
	rec, err := in.record()
	if err != nil {
		s.sendError(w, err)
		return
	}
	rec.ID, rec.CreatedAt = id, existing.CreatedAt
	if err := s.app.Update(r.Context(), rec); err != nil {
		s.sendError(w, err)
		return
	}
	s.sendSuccess(w, http.StatusOK, "updated", rec)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.app.Delete(r.Context(), id); err != nil {
		s.sendError(w, err)
		return
	}
	s.sendSuccess(w, http.StatusOK, "deleted", map[string]string{"id": id})
}

// handleAPIGenerate 接受 JSON 表单，返回生成的草稿（同时暂存到草稿槽，可在 /generate 继续编辑）。
func (s *Server) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	f := composer.DefaultForm()
	if err := decodeBody(r, &f); err != nil {
		s.sendError(w, err)
		return
	}
	d, err := s.generate(r.Context(), f, nil)
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.sendSuccess(w, http.StatusOK, "generated", d)
}
