// Package params reads the persistent key/value settings that shape a
// driving session. Values are strings; booleans are stored as "1"/"0".
package params

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get for a key that has never been set.
var ErrNotFound = errors.New("param not found")

const (
	KeyIsMetric                = "IsMetric"
	KeyOnePedalMode            = "OnePedalMode"
	KeyDisableDisengageOnGas   = "DisableDisengageOnGas"
	KeyOnePedalModeEngageOnGas = "OnePedalModeEngageOnGas"
	KeyOnePedalPauseSteering   = "OnePedalPauseBlinkerSteering"
	KeyEndToEndToggle          = "EndToEndToggle"
	KeyLanelessMode            = "LanelessMode"
	KeyFrictionBrakePercent    = "FrictionBrakePercent"
	KeyEnableWideCamera        = "EnableWideCamera"
	KeySpeedLimitControl       = "SpeedLimitControl"
	KeySpeedLimitPercOffset    = "SpeedLimitPercOffset"
	KeyShowDebugUI             = "ShowDebugUI"
	KeyMeasureNumSlots         = "MeasureNumSlots"
	KeyPercentGradeLenStep     = "PercentGradeLenStep"
)

// MeasureSlotKey returns the key of UI measurement slot i ("MeasureSlot03").
func MeasureSlotKey(i int) string { return fmt.Sprintf("MeasureSlot%02d", i) }

// Store is a string key/value store.
type Store interface {
	Get(key string) (string, error)
	Put(key, value string) error
}

// GetBool reports whether key is set to "1" (or "true"). Missing or
// unreadable keys read as false.
func GetBool(s Store, key string) bool {
	v, err := s.Get(key)
	if err != nil {
		return false
	}
	v = strings.TrimSpace(v)
	return v == "1" || strings.EqualFold(v, "true")
}

// GetInt parses key as an integer, returning def when it is missing or
// malformed.
func GetInt(s Store, key string, def int) int {
	v, err := s.Get(key)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// GetFloat parses key as a float, returning def when it is missing or
// malformed.
func GetFloat(s Store, key string, def float64) float64 {
	v, err := s.Get(key)
	if err != nil {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// PutBool stores b as "1" or "0".
func PutBool(s Store, key string, b bool) error {
	if b {
		return s.Put(key, "1")
	}
	return s.Put(key, "0")
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemStore returns a store pre-populated with seed.
func NewMemStore(seed map[string]string) *MemStore {
	m := make(map[string]string, len(seed))
	for k, v := range seed {
		m[k] = v
	}
	return &MemStore{m: m}
}

func (s *MemStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}

func (s *MemStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *MemStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
