package gitlab

// NewAssignees returns the users present in current but absent from previous,
// preserving current's relative order. Membership is decided by user id only;
// differing emails or names never make two records distinct users.
//
// A nil snapshot means the event carried no assignee change and yields an
// empty result, not an error.
func NewAssignees(changes *AssigneeChanges) []User {
	if changes == nil {
		return nil
	}

	previous := make(map[int64]struct{}, len(changes.Previous))
	for _, u := range changes.Previous {
		previous[u.ID] = struct{}{}
	}

	var added []User
	for _, u := range changes.Current {
		if _, ok := previous[u.ID]; !ok {
			added = append(added, u)
		}
	}
	return added
}
