package server

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"ytpicker/field"
	"ytpicker/storage"
)

// putFieldRequest is the body of PUT /api/fields/:item/:field.
type putFieldRequest struct {
	Kind   string `json:"kind"`
	Format string `json:"format,omitempty"`
	// Options overrides the configured simplified-shape options. A flag
	// left out keeps its configured value.
	Options *struct {
		IncludeTags        *bool `json:"includeTags"`
		IncludeDescription *bool `json:"includeDescription"`
	} `json:"options,omitempty"`
	Selection field.Picked `json:"selection"`
}

func (s *Server) listFields(c fiber.Ctx) error {
	list, err := s.store.ListFields(c.Context(), c.Params("item"))
	if err != nil {
		return s.storeFail(c, err)
	}
	if list == nil {
		list = []*storage.FieldValue{}
	}
	return c.JSON(fiber.Map{"fields": list})
}

func (s *Server) getField(c fiber.Ctx) error {
	fv, err := s.store.GetField(c.Context(), c.Params("item"), c.Params("field"))
	if err != nil {
		return s.storeFail(c, err)
	}
	if c.Query("format") != string(field.FormatSimplified) {
		return c.JSON(fv)
	}

	decoded, err := field.Decode(field.Kind(fv.Kind), fv.Value)
	if err != nil {
		return s.storeFail(c, err)
	}
	return c.JSON(fiber.Map{"field": fv, "decoded": decoded})
}

func (s *Server) putField(c fiber.Ctx) error {
	var req putFieldRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	kind, err := field.ParseKind(req.Kind)
	if err != nil {
		return s.storeFail(c, err)
	}
	format := s.cfg.Format
	if req.Format != "" {
		if format, err = field.ParseFormat(req.Format); err != nil {
			return s.storeFail(c, err)
		}
	}
	opts := s.cfg.FieldOptions
	if o := req.Options; o != nil {
		if o.IncludeTags != nil {
			opts.IncludeTags = *o.IncludeTags
		}
		if o.IncludeDescription != nil {
			opts.IncludeDescription = *o.IncludeDescription
		}
	}

	value, err := field.Encode(kind, format, opts, req.Selection)
	if err != nil {
		return s.storeFail(c, err)
	}

	fv := &storage.FieldValue{
		ContentItemID: c.Params("item"),
		FieldName:     c.Params("field"),
		Kind:          string(kind),
		Format:        string(format),
		Value:         value,
	}
	if err := s.store.PutField(c.Context(), fv); err != nil {
		return s.storeFail(c, err)
	}
	log.Info().
		Str("item", fv.ContentItemID).
		Str("field", fv.FieldName).
		Str("kind", fv.Kind).
		Str("format", fv.Format).
		Msg("server: field stored")
	return c.JSON(fv)
}

func (s *Server) deleteField(c fiber.Ctx) error {
	if err := s.store.DeleteField(c.Context(), c.Params("item"), c.Params("field")); err != nil {
		return s.storeFail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) storeFail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Field value not found"})
	case errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, field.ErrInvalidKind),
		errors.Is(err, field.ErrInvalidFormat),
		errors.Is(err, field.ErrMalformed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	log.Error().Err(err).Str("request_id", requestIDOf(c)).Msg("server: field storage failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to access field storage"})
}
