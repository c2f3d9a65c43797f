package cache

import "fmt"

// RateLimitKey builds the counter key for one rate-limited client.
func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
