package vector

import "strings"

// Entity kinds tagged on point payloads.
const (
	KindIssue   = "issue"
	KindProject = "project"
)

// KindForEntity classifies an entity id by its URL shape: issue URLs have
// seven slash-separated segments (https://github.com/owner/repo/issues/1),
// repository URLs have five.
func KindForEntity(entityID string) string {
	if strings.Count(entityID, "/")+1 == 7 {
		return KindIssue
	}
	return KindProject
}

// PointKind returns the payload's kind tag, falling back to the URL shape
// for points written before kinds were tagged.
func PointKind(p Payload) string {
	if p.Kind != "" {
		return p.Kind
	}
	return KindForEntity(p.EntityID)
}
