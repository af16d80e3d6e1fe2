package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type MobileMessage struct {
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

// MobileGateway delivers to a device token. Implementations wrap
// permanent token failures with ErrGone.
type MobileGateway interface {
	Send(ctx context.Context, token string, msg MobileMessage) error
}

// FlattenData converts arbitrary values to strings, as required by mobile
// data payloads. nil values become empty strings.
func FlattenData(data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = flattenValue(v)
	}
	return out
}

func flattenValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
