package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/events"
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/repos"
	"github.com/spooldock/spooldock/internal/types"
)

// SettingDefinition declares the JSON shape and default of a registry key.
// Values are stored in their encoded form to preserve round-trip.
type SettingDefinition struct {
	Key     string `json:"key"`
	Type    string `json:"type"`
	Default string `json:"default"`
}

// SettingValue is what the API returns for one key.
type SettingValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	IsSet bool   `json:"is_set"`
	Type  string `json:"type"`
}

var settingRegistry = map[string]SettingDefinition{
	"currency":     {Key: "currency", Type: "string", Default: `"EUR"`},
	"round_prices": {Key: "round_prices", Type: "boolean", Default: "false"},
	"base_url":     {Key: "base_url", Type: "string", Default: `""`},
	"locale":       {Key: "locale", Type: "string", Default: `""`},

	// Reserved keys holding the extra-field schemas; managed through the
	// field endpoints but readable like any setting.
	"extra_fields_vendor":   {Key: "extra_fields_vendor", Type: "array", Default: "[]"},
	"extra_fields_filament": {Key: "extra_fields_filament", Type: "array", Default: "[]"},
	"extra_fields_spool":    {Key: "extra_fields_spool", Type: "array", Default: "[]"},
}

type SettingService interface {
	Get(ctx context.Context, key string) (*SettingValue, error)
	GetAll(ctx context.Context) ([]*SettingValue, error)
	Set(ctx context.Context, key, rawValue string) (*SettingValue, error)
	Unset(ctx context.Context, key string) (*SettingValue, error)
}

type settingService struct {
	db          *gorm.DB
	log         *logger.Logger
	settingRepo repos.SettingRepo
	hub         eventPublisher
}

func NewSettingService(db *gorm.DB, log *logger.Logger, settingRepo repos.SettingRepo, hub eventPublisher) SettingService {
	return &settingService{
		db:          db,
		log:         log.With("service", "SettingService"),
		settingRepo: settingRepo,
		hub:         hub,
	}
}

func (s *settingService) Get(ctx context.Context, key string) (*SettingValue, error) {
	def, ok := settingRegistry[key]
	if !ok {
		return nil, apierr.NotFound("unknown setting %q", key)
	}
	stored, err := s.settingRepo.Get(ctx, nil, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &SettingValue{Key: key, Value: def.Default, IsSet: false, Type: def.Type}, nil
		}
		return nil, err
	}
	return &SettingValue{Key: key, Value: string(stored.Value), IsSet: true, Type: def.Type}, nil
}

func (s *settingService) GetAll(ctx context.Context) ([]*SettingValue, error) {
	stored, err := s.settingRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*types.Setting, len(stored))
	for _, st := range stored {
		byKey[st.Key] = st
	}
	out := make([]*SettingValue, 0, len(settingRegistry))
	for key, def := range settingRegistry {
		if st, ok := byKey[key]; ok {
			out = append(out, &SettingValue{Key: key, Value: string(st.Value), IsSet: true, Type: def.Type})
		} else {
			out = append(out, &SettingValue{Key: key, Value: def.Default, IsSet: false, Type: def.Type})
		}
	}
	return out, nil
}

func (s *settingService) Set(ctx context.Context, key, rawValue string) (*SettingValue, error) {
	def, ok := settingRegistry[key]
	if !ok {
		return nil, apierr.NotFound("unknown setting %q", key)
	}
	if strings.HasPrefix(key, "extra_fields_") {
		return nil, apierr.InvalidArgument("setting %q is managed through the field endpoints", key)
	}
	if err := validateSettingShape(def, rawValue); err != nil {
		return nil, err
	}
	stored, err := s.settingRepo.Upsert(ctx, nil, key, rawValue)
	if err != nil {
		return nil, err
	}
	out := &SettingValue{Key: key, Value: string(stored.Value), IsSet: true, Type: def.Type}
	s.hub.Publish(events.EventUpdated, types.ResourceSetting, key, out)
	return out, nil
}

func (s *settingService) Unset(ctx context.Context, key string) (*SettingValue, error) {
	def, ok := settingRegistry[key]
	if !ok {
		return nil, apierr.NotFound("unknown setting %q", key)
	}
	if err := s.settingRepo.Delete(ctx, nil, key); err != nil {
		return nil, err
	}
	out := &SettingValue{Key: key, Value: def.Default, IsSet: false, Type: def.Type}
	s.hub.Publish(events.EventUpdated, types.ResourceSetting, key, out)
	return out, nil
}

func validateSettingShape(def SettingDefinition, raw string) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return apierr.InvalidArgument("setting %q: not valid JSON: %v", def.Key, err)
	}
	ok := false
	switch def.Type {
	case "string":
		_, ok = v.(string)
	case "boolean":
		_, ok = v.(bool)
	case "number":
		_, ok = v.(json.Number)
	case "array":
		_, ok = v.([]interface{})
	case "object":
		_, ok = v.(map[string]interface{})
	}
	if !ok {
		return apierr.InvalidArgument("setting %q expects a JSON %s", def.Key, def.Type)
	}
	return nil
}
