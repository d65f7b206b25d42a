package redis

import (
	"fmt"
	"strings"
)

const ns = "lessonbook:v1"

// KeyCatalogGeneration holds a counter bumped on every catalog change. Cached
// search results embed it in their key, so a bump orphans all of them.
func KeyCatalogGeneration() string {
	return ns + ":catalog:gen"
}

func KeyLessonSearch(generation int64, query string) string {
	return fmt.Sprintf("%s:catalog:%d:search:%s", ns, generation, strings.ToLower(query))
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemOrder(idemKey string) string {
	return fmt.Sprintf("%s:idem:orders:%s", ns, idemKey)
}

func ChannelLessonsChanged() string {
	return ns + ":lessons:changed"
}
