package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"code-lottery-go/internal/models"
)

// eventDateLayouts are the accepted spellings of an event deadline. A bare
// date means the end of that day.
var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseEventExpiry parses an event deadline in local time.
func ParseEventExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventDateLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized event expiry %q", s)
}

// decodeConfig reads the config section field by field. Missing fields take
// their default; wrongly typed or out-of-range fields are reset with a warning.
func decodeConfig(raw json.RawMessage) (models.LotteryConfig, []string) {
	cfg := models.DefaultLotteryConfig()
	var warnings []string

	if isNull(raw) {
		return cfg, []string{"config section missing, using defaults"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return cfg, []string{"config section is not an object, using defaults"}
	}

	if w, ok := fields["weights"]; ok && !isNull(w) {
		var weights map[string]json.RawMessage
		if err := json.Unmarshal(w, &weights); err != nil {
			warnings = append(warnings, "config.weights is not an object, using defaults")
		} else {
			warnings = appendIf(warnings, readInt(weights, "gold", "weights.gold", &cfg.Weights.Gold))
			warnings = appendIf(warnings, readInt(weights, "purple", "weights.purple", &cfg.Weights.Purple))
			warnings = appendIf(warnings, readInt(weights, "blue", "weights.blue", &cfg.Weights.Blue))
			warnings = appendIf(warnings, readInt(weights, "event", "weights.event", &cfg.Weights.Event))
		}
	}

	warnings = appendIf(warnings, readInt(fields, "pityThreshold", "pityThreshold", &cfg.PityThreshold))
	warnings = appendIf(warnings, readInt(fields, "weeklyLimit", "weeklyLimit", &cfg.WeeklyLimit))
	warnings = appendIf(warnings, readInt(fields, "dailyLimit", "dailyLimit", &cfg.DailyLimit))

	if v, ok := fields["pityTier"]; ok && !isNull(v) {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			warnings = append(warnings, fmt.Sprintf("config.pityTier has wrong type, reset to %q", cfg.PityTier))
		} else {
			cfg.PityTier = models.Tier(strings.ToLower(strings.TrimSpace(s)))
		}
	}

	if v, ok := fields["eventPool"]; ok && !isNull(v) {
		warnings = append(warnings, decodeEventPool(v, &cfg.EventPool)...)
	}

	warnings = append(warnings, cfg.Validate()...)
	return cfg, warnings
}

func decodeEventPool(raw json.RawMessage, ev *models.EventPoolConfig) []string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return []string{"config.eventPool is not an object, event pool disabled"}
	}

	var warnings []string
	if v, ok := fields["enabled"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &ev.Enabled); err != nil {
			ev.Enabled = false
			warnings = append(warnings, "config.eventPool.enabled has wrong type, event pool disabled")
		}
	}
	if v, ok := fields["name"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &ev.Name); err != nil {
			ev.Name = ""
			warnings = append(warnings, "config.eventPool.name has wrong type, cleared")
		}
	}
	if v, ok := fields["expiresAt"]; ok && !isNull(v) {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			ev.Enabled = false
			warnings = append(warnings, "config.eventPool.expiresAt has wrong type, event pool disabled")
			return warnings
		}
		t, err := ParseEventExpiry(s)
		if err != nil {
			ev.Enabled = false
			warnings = append(warnings, fmt.Sprintf("config.eventPool.expiresAt %q is unparseable, event pool disabled", s))
			return warnings
		}
		ev.ExpiresAt = &t
	}
	return warnings
}

// readInt accepts JSON integers, integral floats and numeric strings.
func readInt(fields map[string]json.RawMessage, key, name string, dst *int) string {
	v, ok := fields[key]
	if !ok || isNull(v) {
		return ""
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var decoded interface{}
	if err := dec.Decode(&decoded); err == nil {
		switch val := decoded.(type) {
		case json.Number:
			n = val
		case string:
			n = json.Number(strings.TrimSpace(val))
		}
	}

	if i, err := strconv.Atoi(n.String()); err == nil {
		*dst = i
		return ""
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
		*dst = int(f)
		return ""
	}
	return fmt.Sprintf("config.%s has wrong type, reset to %d", name, *dst)
}

func normalizePools(st *models.State, pools map[models.Tier]*models.CodePool) []string {
	var warnings []string
	for t := range pools {
		if !t.Valid() {
			warnings = append(warnings, fmt.Sprintf("unknown pool %q dropped", t))
		}
	}

	// Used codes are authoritative: an available entry that was already
	// issued anywhere is dropped, as is a second copy of any code.
	seen := make(map[string]models.Tier)
	for _, t := range models.AllTiers {
		src := pools[t]
		if src == nil {
			continue
		}
		dst := st.Pool(t)
		for code, rec := range src.Used {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if prev, dup := seen[code]; dup {
				warnings = append(warnings, fmt.Sprintf("used code in %s also recorded in %s, kept in %s", t, prev, prev))
				continue
			}
			seen[code] = t
			dst.Used[code] = rec
		}
	}

	for _, t := range models.AllTiers {
		src := pools[t]
		if src == nil {
			continue
		}
		dst := st.Pool(t)
		dropped := 0
		for _, code := range src.Available {
			code = strings.TrimSpace(code)
			if code == "" {
				dropped++
				continue
			}
			if _, dup := seen[code]; dup {
				dropped++
				continue
			}
			seen[code] = t
			dst.Available = append(dst.Available, code)
		}
		if dropped > 0 {
			warnings = append(warnings, fmt.Sprintf("%d duplicate or empty codes dropped from %s pool", dropped, t))
		}
	}
	return warnings
}

func normalizeUsers(st *models.State, users map[string]*models.UserAccount) []string {
	var warnings []string
	for id, acct := range users {
		if id == "" || acct == nil {
			warnings = append(warnings, "empty user record dropped")
			continue
		}
		fixes := 0
		for _, n := range []*int{&acct.TotalDraws, &acct.WeekDraws, &acct.DayDraws, &acct.PityCounter} {
			if *n < 0 {
				*n = 0
				fixes++
			}
		}
		if fixes > 0 {
			warnings = append(warnings, fmt.Sprintf("user %s had %d negative counters, reset to 0", id, fixes))
		}
		st.Users[id] = acct
	}
	return warnings
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func appendIf(warnings []string, w string) []string {
	if w == "" {
		return warnings
	}
	return append(warnings, w)
}
