package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/repos"
)

type EntityType string

const (
	EntityVendor   EntityType = "vendor"
	EntityFilament EntityType = "filament"
	EntitySpool    EntityType = "spool"
)

func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityVendor, EntityFilament, EntitySpool:
		return EntityType(s), nil
	}
	return "", apierr.InvalidArgument("unknown entity type %q", s)
}

type FieldType string

const (
	FieldText         FieldType = "text"
	FieldInteger      FieldType = "integer"
	FieldIntegerRange FieldType = "integer_range"
	FieldFloat        FieldType = "float"
	FieldFloatRange   FieldType = "float_range"
	FieldDatetime     FieldType = "datetime"
	FieldBoolean      FieldType = "boolean"
	FieldChoice       FieldType = "choice"
)

// FieldDefinition is one user-defined attribute schema. DefaultValue holds
// the JSON-encoded default, matching how values travel through the API.
type FieldDefinition struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	FieldType    FieldType `json:"field_type"`
	Unit         *string   `json:"unit,omitempty"`
	DefaultValue *string   `json:"default_value,omitempty"`
	Choices      []string  `json:"choices,omitempty"`
	MultiChoice  *bool     `json:"multi_choice,omitempty"`
}

var fieldKeyPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateDefinition enforces the schema invariants: key shape, choice
// fields carry choices and a multi_choice flag, non-choice fields carry
// neither, and any default validates against the field itself.
func ValidateDefinition(def FieldDefinition) error {
	if !fieldKeyPattern.MatchString(def.Key) {
		return apierr.InvalidArgument("field key %q must match ^[a-z0-9_]+$ and be 1-64 chars", def.Key)
	}
	if strings.TrimSpace(def.Name) == "" {
		return apierr.InvalidArgument("field name is required")
	}
	switch def.FieldType {
	case FieldText, FieldInteger, FieldIntegerRange, FieldFloat, FieldFloatRange, FieldDatetime, FieldBoolean:
		if len(def.Choices) > 0 || def.MultiChoice != nil {
			return apierr.InvalidArgument("field %q: choices and multi_choice are only valid for choice fields", def.Key)
		}
	case FieldChoice:
		if len(def.Choices) == 0 {
			return apierr.InvalidArgument("field %q: choice fields need a non-empty choices list", def.Key)
		}
		if def.MultiChoice == nil {
			return apierr.InvalidArgument("field %q: choice fields need a multi_choice flag", def.Key)
		}
	default:
		return apierr.InvalidArgument("field %q: unknown field type %q", def.Key, def.FieldType)
	}
	if def.DefaultValue != nil {
		if err := ValidateValue(def, *def.DefaultValue); err != nil {
			return apierr.InvalidArgument("field %q: default value invalid: %v", def.Key, err)
		}
	}
	return nil
}

// ValidateValue checks one JSON-encoded value against a field definition.
func ValidateValue(def FieldDefinition, raw string) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}

	switch def.FieldType {
	case FieldText:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected a string")
		}
	case FieldInteger:
		return requireInteger(v)
	case FieldIntegerRange:
		return requireRange(v, requireInteger)
	case FieldFloat:
		return requireNumber(v)
	case FieldFloatRange:
		return requireRange(v, requireNumber)
	case FieldDatetime:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected an ISO-8601 string")
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("not an ISO-8601 timestamp: %v", err)
		}
	case FieldBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected true or false")
		}
	case FieldChoice:
		if def.MultiChoice != nil && *def.MultiChoice {
			arr, ok := v.([]interface{})
			if !ok {
				return fmt.Errorf("expected an array of choices")
			}
			for _, item := range arr {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("expected an array of strings")
				}
				if !containsChoice(def.Choices, s) {
					return fmt.Errorf("%q is not one of the choices", s)
				}
			}
		} else {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected a string")
			}
			if !containsChoice(def.Choices, s) {
				return fmt.Errorf("%q is not one of the choices", s)
			}
		}
	default:
		return fmt.Errorf("unknown field type %q", def.FieldType)
	}
	return nil
}

func requireInteger(v interface{}) error {
	num, ok := v.(json.Number)
	if !ok {
		return fmt.Errorf("expected an integer")
	}
	if _, err := num.Int64(); err != nil {
		return fmt.Errorf("expected an integer, got %s", num.String())
	}
	return nil
}

func requireNumber(v interface{}) error {
	if _, ok := v.(json.Number); !ok {
		return fmt.Errorf("expected a number")
	}
	return nil
}

func requireRange(v interface{}, each func(interface{}) error) error {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 2 {
		return fmt.Errorf("expected an array of exactly two values")
	}
	for _, item := range arr {
		if err := each(item); err != nil {
			return err
		}
	}
	return nil
}

func containsChoice(choices []string, s string) bool {
	for _, c := range choices {
		if c == s {
			return true
		}
	}
	return false
}

// ExtraFieldService maintains the per-entity-type field schemas and applies
// them to attribute bags at write time. Definitions live JSON-encoded under
// reserved settings keys, one per entity type.
type ExtraFieldService interface {
	GetFields(ctx context.Context, tx *gorm.DB, entity EntityType) ([]FieldDefinition, error)
	AddOrUpdateField(ctx context.Context, entity EntityType, def FieldDefinition) ([]FieldDefinition, error)
	DeleteField(ctx context.Context, entity EntityType, key string) error

	// ValidateExtras checks every supplied value; nil values (clears) pass.
	ValidateExtras(ctx context.Context, tx *gorm.DB, entity EntityType, extra map[string]*string) error
	// ApplyDefaults fills defaults for defined fields absent from the bag.
	ApplyDefaults(ctx context.Context, tx *gorm.DB, entity EntityType, extra map[string]string) (map[string]string, error)
	// FilterKnown hides values whose key no longer has a definition.
	FilterKnown(ctx context.Context, tx *gorm.DB, entity EntityType, extra map[string]string) (map[string]string, error)
}

type extraFieldService struct {
	db          *gorm.DB
	log         *logger.Logger
	settingRepo repos.SettingRepo
}

func NewExtraFieldService(db *gorm.DB, log *logger.Logger, settingRepo repos.SettingRepo) ExtraFieldService {
	return &extraFieldService{
		db:          db,
		log:         log.With("service", "ExtraFieldService"),
		settingRepo: settingRepo,
	}
}

func fieldsSettingKey(entity EntityType) string {
	return "extra_fields_" + string(entity)
}

func (s *extraFieldService) loadFields(ctx context.Context, tx *gorm.DB, entity EntityType) ([]FieldDefinition, error) {
	setting, err := s.settingRepo.Get(ctx, tx, fieldsSettingKey(entity))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var defs []FieldDefinition
	if err := json.Unmarshal(setting.Value, &defs); err != nil {
		return nil, fmt.Errorf("corrupt field definitions for %s: %w", entity, err)
	}
	return defs, nil
}

func (s *extraFieldService) storeFields(ctx context.Context, tx *gorm.DB, entity EntityType, defs []FieldDefinition) error {
	if defs == nil {
		defs = []FieldDefinition{}
	}
	raw, err := json.Marshal(defs)
	if err != nil {
		return err
	}
	_, err = s.settingRepo.Upsert(ctx, tx, fieldsSettingKey(entity), string(raw))
	return err
}

func (s *extraFieldService) GetFields(ctx context.Context, tx *gorm.DB, entity EntityType) ([]FieldDefinition, error) {
	return s.loadFields(ctx, tx, entity)
}

// AddOrUpdateField replaces any definition with the same key. The
// read-modify-write runs inside one transaction so concurrent edits cannot
// lose updates.
func (s *extraFieldService) AddOrUpdateField(ctx context.Context, entity EntityType, def FieldDefinition) ([]FieldDefinition, error) {
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}
	var out []FieldDefinition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		defs, err := s.loadFields(ctx, tx, entity)
		if err != nil {
			return err
		}
		replaced := false
		for i := range defs {
			if defs[i].Key == def.Key {
				defs[i] = def
				replaced = true
				break
			}
		}
		if !replaced {
			defs = append(defs, def)
		}
		out = defs
		return s.storeFields(ctx, tx, entity, defs)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *extraFieldService) DeleteField(ctx context.Context, entity EntityType, key string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		defs, err := s.loadFields(ctx, tx, entity)
		if err != nil {
			return err
		}
		kept := defs[:0]
		found := false
		for _, d := range defs {
			if d.Key == key {
				found = true
				continue
			}
			kept = append(kept, d)
		}
		if !found {
			return apierr.NotFound("no field %q on %s", key, entity)
		}
		// Values already stored on entities are kept and hidden, not purged.
		return s.storeFields(ctx, tx, entity, kept)
	})
}

func (s *extraFieldService) ValidateExtras(ctx context.Context, tx *gorm.DB, entity EntityType, extra map[string]*string) error {
	if len(extra) == 0 {
		return nil
	}
	defs, err := s.loadFields(ctx, tx, entity)
	if err != nil {
		return err
	}
	byKey := make(map[string]FieldDefinition, len(defs))
	for _, d := range defs {
		byKey[d.Key] = d
	}
	for key, value := range extra {
		def, ok := byKey[key]
		if !ok {
			return apierr.InvalidArgument("no extra field %q defined on %s", key, entity)
		}
		if value == nil {
			continue
		}
		if err := ValidateValue(def, *value); err != nil {
			return apierr.InvalidArgument("extra field %q: %v", key, err)
		}
	}
	return nil
}

func (s *extraFieldService) ApplyDefaults(ctx context.Context, tx *gorm.DB, entity EntityType, extra map[string]string) (map[string]string, error) {
	defs, err := s.loadFields(ctx, tx, entity)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for _, d := range defs {
		if d.DefaultValue == nil {
			continue
		}
		if _, ok := out[d.Key]; !ok {
			out[d.Key] = *d.DefaultValue
		}
	}
	return out, nil
}

func (s *extraFieldService) FilterKnown(ctx context.Context, tx *gorm.DB, entity EntityType, extra map[string]string) (map[string]string, error) {
	defs, err := s.loadFields(ctx, tx, entity)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(defs))
	for _, d := range defs {
		known[d.Key] = true
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		if known[k] {
			out[k] = v
		}
	}
	return out, nil
}
