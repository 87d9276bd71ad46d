package gitlab

import (
	"testing"
)

func user(id int64, email string) User {
	return User{ID: id, Email: email, Name: email, Username: email}
}

func TestNewAssignees(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		changes *AssigneeChanges
		wantIDs []int64
	}{
		{
			name:    "nil snapshot",
			changes: nil,
			wantIDs: nil,
		},
		{
			name:    "empty snapshot",
			changes: &AssigneeChanges{},
			wantIDs: nil,
		},
		{
			name: "one added",
			changes: &AssigneeChanges{
				Current:  []User{user(1, "a@x"), user(2, "b@x")},
				Previous: []User{user(1, "a@x")},
			},
			wantIDs: []int64{2},
		},
		{
			name: "same ids means no diff",
			changes: &AssigneeChanges{
				Current:  []User{user(1, "a@x"), user(2, "b@x")},
				Previous: []User{user(2, "b@x"), user(1, "a@x")},
			},
			wantIDs: nil,
		},
		{
			name: "identity is by id, not email",
			changes: &AssigneeChanges{
				Current:  []User{user(1, "renamed@x")},
				Previous: []User{user(1, "a@x")},
			},
			wantIDs: nil,
		},
		{
			name: "order of current preserved",
			changes: &AssigneeChanges{
				Current:  []User{user(5, "e@x"), user(3, "c@x"), user(4, "d@x")},
				Previous: []User{user(3, "c@x")},
			},
			wantIDs: []int64{5, 4},
		},
		{
			name: "all removed yields nothing",
			changes: &AssigneeChanges{
				Current:  nil,
				Previous: []User{user(1, "a@x")},
			},
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAssignees(tt.changes)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d (%+v)", len(got), len(tt.wantIDs), got)
			}
			for i, u := range got {
				if u.ID != tt.wantIDs[i] {
					t.Errorf("got[%d].ID = %d, want %d", i, u.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestNewAssigneesKeepsFullUser(t *testing.T) {
	changes := &AssigneeChanges{
		Current:  []User{{ID: 2, Email: "b@x", Name: "Bee", Username: "bee"}},
		Previous: []User{{ID: 1, Email: "a@x"}},
	}
	got := NewAssignees(changes)
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Email != "b@x" || got[0].Username != "bee" {
		t.Errorf("user fields lost: %+v", got[0])
	}
}
