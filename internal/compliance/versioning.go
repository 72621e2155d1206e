package compliance

import (
	"fmt"
	"strings"

	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

// NormalizeVersionNumber trims and lowercases a version label for comparison.
func NormalizeVersionNumber(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// AddVersion appends v to parent. When makeActive is set, every sibling is
// deactivated first and parent.Version mirrors the new number. The first version
// of a parent is always active.
func AddVersion(parent *models.Document, v models.DocumentVersion, makeActive bool) error {
	number := strings.TrimSpace(v.VersionNumber)
	if number == "" {
		return appErrors.Clone(appErrors.ErrValidation, "versionNumber is required")
	}
	key := NormalizeVersionNumber(number)
	for _, existing := range parent.Versions {
		if NormalizeVersionNumber(existing.VersionNumber) == key {
			return appErrors.Clone(appErrors.ErrVersionConflict, fmt.Sprintf("version %s already exists", number))
		}
	}

	v.VersionNumber = number
	v.DocumentID = parent.ID
	if len(parent.Versions) == 0 {
		makeActive = true
	}
	if makeActive {
		DeactivateAllVersions(parent)
		parent.Version = number
	}
	v.IsActive = makeActive
	parent.Versions = append(parent.Versions, v)
	return nil
}

// ActivateVersion makes versionID the single active version of parent.
func ActivateVersion(parent *models.Document, versionID string) error {
	idx := -1
	for i := range parent.Versions {
		if parent.Versions[i].ID == versionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "version not found")
	}
	DeactivateAllVersions(parent)
	parent.Versions[idx].IsActive = true
	parent.Version = parent.Versions[idx].VersionNumber
	return nil
}

// DeactivateAllVersions clears the active flag on every version of parent.
func DeactivateAllVersions(parent *models.Document) {
	for i := range parent.Versions {
		parent.Versions[i].IsActive = false
	}
	parent.Version = ""
}

// CheckVersions verifies that at most one version is active and that the
// parent's version label mirrors it.
func CheckVersions(parent *models.Document) error {
	active := 0
	var label string
	for _, v := range parent.Versions {
		if v.IsActive {
			active++
			label = v.VersionNumber
		}
	}
	switch {
	case active > 1:
		return appErrors.Clone(appErrors.ErrVersionConflict, fmt.Sprintf("%d active versions", active))
	case active == 1 && parent.Version != label:
		return appErrors.Clone(appErrors.ErrVersionConflict, "version label does not match active version")
	}
	return nil
}
