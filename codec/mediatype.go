package codec

import "strings"

// Media types recognised by the encoding pipeline.
const (
	ContentTypeJSON        = "application/json; charset=utf-8"
	ContentTypeProblemJSON = "application/problem+json; charset=utf-8"
	ContentTypeJSONLines   = "application/jsonlines; charset=utf-8"
	ContentTypeMsgPack     = "application/msgpack"
	ContentTypeCSV         = "text/csv; charset=utf-8"
	ContentTypeForm        = "application/x-www-form-urlencoded"
	ContentTypeBSON        = "application/bson"
	ContentTypeText        = "text/plain; charset=utf-8"
	ContentTypeHTML        = "text/html; charset=utf-8"
	ContentTypeOctetStream = "application/octet-stream"
)

// Essence strips parameters from a media type and lowercases it, so
// "Application/JSON; charset=utf-8" becomes "application/json".
func Essence(contentType string) string {
	essence, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(essence))
}

// IsJSON reports whether the media type is plain JSON or a +json structured
// syntax such as application/problem+json. JSON Lines is not JSON.
func IsJSON(contentType string) bool {
	essence := Essence(contentType)
	return essence == "application/json" || strings.HasSuffix(essence, "+json")
}

// IsCSV reports whether the media type is text/csv.
func IsCSV(contentType string) bool {
	return strings.HasPrefix(Essence(contentType), "text/csv")
}

// IsJSONLines reports whether the media type is application/jsonlines.
func IsJSONLines(contentType string) bool {
	return strings.HasPrefix(Essence(contentType), "application/jsonlines")
}

// IsMsgPack reports whether the media type is application/msgpack.
func IsMsgPack(contentType string) bool {
	return strings.HasPrefix(Essence(contentType), "application/msgpack")
}

// IsBSON reports whether the media type is application/bson.
func IsBSON(contentType string) bool {
	return Essence(contentType) == "application/bson"
}
