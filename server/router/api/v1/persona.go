package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/docpilot/store"
)

// builtinPersonas are always available and cannot be modified. Custom
// personas with the same name shadow them.
var builtinPersonas = map[string]string{
	"default": "You are a helpful assistant that answers questions grounded in the provided document excerpts. Cite sources with bracketed numbers like [1].",
	"concise": "You are a precise assistant. Answer in as few words as the question allows, grounded in the provided document excerpts, citing sources like [1]. Never pad your answers.",
	"analyst": "You are a careful analyst. Answer from the provided document excerpts, compare conflicting passages explicitly, quantify where the documents allow it, and cite every claim like [1].",
	"tutor":   "You are a patient tutor. Explain answers from the provided document excerpts step by step, define terms the first time they appear, and cite sources like [1].",
}

type personaResponse struct {
	Name    string `json:"name"`
	Prompt  string `json:"prompt"`
	Builtin bool   `json:"builtin"`
}

// resolvePersona returns the persona's prompt, custom definitions first.
func (s *APIV1Service) resolvePersona(ctx context.Context, name string) (string, error) {
	custom, err := s.Store.GetPersona(ctx, &store.FindPersona{Name: &name})
	if err != nil {
		return "", err
	}
	if custom != nil {
		return custom.Prompt, nil
	}
	return builtinPersonas[name], nil
}

func (s *APIV1Service) ListPersonas(c echo.Context) error {
	ctx := c.Request().Context()
	custom, err := s.Store.ListPersonas(ctx, &store.FindPersona{})
	if err != nil {
		return internalError(c, err)
	}

	resp := make([]*personaResponse, 0, len(custom)+len(builtinPersonas))
	shadowed := map[string]bool{}
	for _, p := range custom {
		resp = append(resp, &personaResponse{Name: p.Name, Prompt: p.Prompt})
		shadowed[p.Name] = true
	}
	for _, name := range []string{"default", "concise", "analyst", "tutor"} {
		if !shadowed[name] {
			resp = append(resp, &personaResponse{Name: name, Prompt: builtinPersonas[name], Builtin: true})
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type createPersonaRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

func (s *APIV1Service) CreatePersona(c echo.Context) error {
	ctx := c.Request().Context()
	var req createPersonaRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}
	if req.Name == "" || req.Prompt == "" {
		return errorResponse(c, http.StatusBadRequest, "name and prompt are required")
	}

	existing, err := s.Store.GetPersona(ctx, &store.FindPersona{Name: &req.Name})
	if err != nil {
		return internalError(c, err)
	}
	if existing != nil {
		return errorResponse(c, http.StatusConflict, "persona already exists")
	}

	p, err := s.Store.CreatePersona(ctx, &store.Persona{Name: req.Name, Prompt: req.Prompt})
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, &personaResponse{Name: p.Name, Prompt: p.Prompt})
}

func (s *APIV1Service) DeletePersona(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")

	p, err := s.Store.GetPersona(ctx, &store.FindPersona{Name: &name})
	if err != nil {
		return internalError(c, err)
	}
	if p == nil {
		if _, builtin := builtinPersonas[name]; builtin {
			return errorResponse(c, http.StatusBadRequest, "builtin personas cannot be deleted")
		}
		return errorResponse(c, http.StatusNotFound, "persona not found")
	}

	if err := s.Store.DeletePersona(ctx, &store.DeletePersona{ID: p.ID}); err != nil {
		return internalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
