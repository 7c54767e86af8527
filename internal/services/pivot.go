package services

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pivot describes one many-to-many join table.
type pivot struct {
	table    string
	ownerCol string
	otherCol string
}

var (
	propertyFilterOptionPivot = pivot{"property_filter_option", "property_id", "filter_option_id"}
	preferencePropertyTypes   = pivot{"property_type_user_preference", "user_preference_id", "property_type_id"}
	preferenceBhkTypes        = pivot{"bhk_type_user_preference", "user_preference_id", "bhk_type_id"}
	preferenceMoveInTimelines = pivot{"move_in_timeline_user_preference", "user_preference_id", "move_in_timeline_id"}
	preferenceNearbyLocations = pivot{"nearby_location_user_preference", "user_preference_id", "nearby_location_id"}
	preferenceLocalities      = pivot{"locality_user_preference", "user_preference_id", "locality_id"}
	roleUsersPivot            = pivot{"role_users", "user_id", "role_id"}
	rolePermissionsPivot      = pivot{"role_permissions", "role_id", "permission_id"}
)

// attach appends links from ownerID to ids. Existing links are kept and
// never duplicated, so calling it twice with the same ids is a no-op.
func (p pivot) attach(tx *gorm.DB, ownerID string, ids []string) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, map[string]interface{}{p.ownerCol: ownerID, p.otherCol: id})
	}
	err := tx.Table(p.table).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).Error
	if err != nil {
		return fmt.Errorf("failed to attach %s: %w", p.table, err)
	}
	return nil
}

// sync makes the links of ownerID exactly ids: missing links are added and
// links to anything not in ids are removed. An empty ids clears the relation.
func (p pivot) sync(tx *gorm.DB, ownerID string, ids []string) error {
	ids = uniqueIDs(ids)
	var err error
	if len(ids) == 0 {
		err = p.detachAll(tx, ownerID)
	} else {
		err = tx.Exec(
			fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s NOT IN ?", p.table, p.ownerCol, p.otherCol),
			ownerID, ids,
		).Error
	}
	if err != nil {
		return fmt.Errorf("failed to detach %s: %w", p.table, err)
	}
	return p.attach(tx, ownerID, ids)
}

// detachAll removes every link of ownerID.
func (p pivot) detachAll(tx *gorm.DB, ownerID string) error {
	if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", p.table, p.ownerCol), ownerID).Error; err != nil {
		return fmt.Errorf("failed to detach %s: %w", p.table, err)
	}
	return nil
}

// detachOther removes every link pointing at otherID, from any owner.
func (p pivot) detachOther(tx *gorm.DB, otherIDs ...string) error {
	if len(otherIDs) == 0 {
		return nil
	}
	if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s IN ?", p.table, p.otherCol), otherIDs).Error; err != nil {
		return fmt.Errorf("failed to detach %s: %w", p.table, err)
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
