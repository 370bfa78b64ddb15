package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// errNegativeDuration 时长不能为负
var errNegativeDuration = errors.New("duration must not be negative")

// Duration 可在 JSON 与环境变量中书写的时长
//
// JSON 中写作 "5s"、"250ms" 这样的字符串，也接受纳秒整数；
// 输出统一为字符串形式。
type Duration time.Duration

// ParseDuration 解析 "5s" 形式或纳秒整数形式的时长
func ParseDuration(s string) (Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return checkDuration(time.Duration(n))
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return checkDuration(d)
}

func checkDuration(d time.Duration) (Duration, error) {
	if d < 0 {
		return 0, fmt.Errorf("%w: %s", errNegativeDuration, d)
	}
	return Duration(d), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON 接受字符串或整数
func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return d.UnmarshalText([]byte(s))
	}
	if bytes.ContainsAny(data, ".eE") || len(data) == 0 || data[0] == 't' || data[0] == 'f' || data[0] == 'n' {
		return fmt.Errorf("duration must be a string such as \"5s\" or integer nanoseconds, got %s", data)
	}
	return d.UnmarshalText(data)
}

// MarshalJSON 以字符串形式输出
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 返回 time.Duration
func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }
