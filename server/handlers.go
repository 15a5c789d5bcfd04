package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"auto_spec_builder/generator"
	"auto_spec_builder/pipeline"
	"auto_spec_builder/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, generator.Domains)
}

type structureReq struct {
	Text         string `json:"text"`
	CrmSystem    string `json:"crmSystem"`
	PromptID     int64  `json:"promptId"`
	Instructions string `json:"instructions"`
}

func (req structureReq) input(ownerID int64) pipeline.StructureInput {
	return pipeline.StructureInput{
		OwnerID:      ownerID,
		Text:         req.Text,
		Instructions: req.Instructions,
		PromptID:     req.PromptID,
		DomainID:     req.CrmSystem,
	}
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	var req structureReq
	if !decodeJSON(w, r, &req) {
		return
	}
	tree, err := s.pipeline.Structure(r.Context(), req.input(userID(r.Context())))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

type generateReq struct {
	structureReq
	ProjectID int64 `json:"projectId"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if !decodeJSON(w, r, &req) {
		return
	}
	spec, err := s.pipeline.Generate(r.Context(), pipeline.GenerateInput{
		StructureInput: req.input(userID(r.Context())),
		ProjectID:      req.ProjectID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, spec)
}

type specReq struct {
	Title     string              `json:"title"`
	ProjectID int64               `json:"projectId"`
	Sections  []generator.Section `json:"sections"`
}

func (s *Server) handleSpecCreate(w http.ResponseWriter, r *http.Request) {
	var req specReq
	if !decodeJSON(w, r, &req) {
		return
	}
	spec, err := s.pipeline.Create(r.Context(), userID(r.Context()), req.ProjectID, req.Title,
		generator.Tree{Title: req.Title, Sections: req.Sections})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, spec)
}

func (s *Server) handleSpecList(w http.ResponseWriter, r *http.Request) {
	specs, err := s.store.List(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

func (s *Server) handleSpecGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	spec, err := s.store.Get(r.Context(), id, userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (s *Server) handleSpecUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req specReq
	if !decodeJSON(w, r, &req) {
		return
	}
	spec, err := s.pipeline.Update(r.Context(), userID(r.Context()), id, req.Title,
		generator.Tree{Title: req.Title, Sections: req.Sections})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (s *Server) handleSpecDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.pipeline.Delete(r.Context(), userID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadDoc(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, pipeline.MaxDocumentSize+(1<<20))
	file, header, err := r.FormFile("document")
	if err != nil {
		uploadError(w, err, "document")
		return
	}
	defer file.Close()

	text, err := pipeline.ExtractText(header.Filename, file, header.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if text == "" {
		badRequest(w, "the document contains no text")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleExport(format pipeline.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		art, err := s.pipeline.Export(r.Context(), userID(r.Context()), id, format)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", art.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(art.Data)
	}
}

func (s *Server) handleAttachmentUpload(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, pipeline.MaxAttachmentSize+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		uploadError(w, err, "file")
		return
	}
	defer file.Close()
	if header.Size > pipeline.MaxAttachmentSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "file is larger than 5 MB", Kind: "validation"})
		return
	}

	a, err := s.pipeline.AddAttachment(r.Context(), userID(r.Context()), itemID, header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleAttachmentDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.pipeline.DeleteAttachment(r.Context(), userID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func uploadError(w http.ResponseWriter, err error, field string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "upload is too large", Kind: "validation"})
		return
	}
	badRequest(w, fmt.Sprintf("multipart field %q is required", field))
}

type projectReq struct {
	Name string `json:"name"`
}

func (s *Server) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req projectReq
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.store.CreateProject(r.Context(), userID(r.Context()), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleProjectList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListProjects(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type promptReq struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	IsDefault bool   `json:"isDefault"`
}

func (s *Server) handlePromptCreate(w http.ResponseWriter, r *http.Request) {
	var req promptReq
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.store.CreatePrompt(r.Context(), store.Prompt{
		UserID:    userID(r.Context()),
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePromptUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req promptReq
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.store.UpdatePrompt(r.Context(), store.Prompt{
		ID:        id,
		UserID:    userID(r.Context()),
		Title:     req.Title,
		Content:   req.Content,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePromptList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListPrompts(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handlePromptDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeletePrompt(r.Context(), id, userID(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePromptDefaultText exposes the built-in instructions so callers can
// start a custom prompt from them. The output contract is not included.
func (s *Server) handlePromptDefaultText(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"text": generator.DefaultInstructions})
}
