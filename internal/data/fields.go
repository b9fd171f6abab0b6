// internal/data/fields.go
// This file defines the declarative representation of a partial update:
// an ordered list of column changes built by the caller from whichever
// fields the operator chose to touch. Unselected fields never appear in
// the list, so no statement is ever issued for them.
package data

// FieldChange is one requested column mutation. A nil Value clears the
// column (SET col = NULL); whether NULL is acceptable is the database's
// decision, reported back as a not-null violation.
type FieldChange struct {
	Column string
	Value  any
}

// ChangeSet is the ordered list of field changes for one entity.
// The zero value is an empty set, which executes as a no-op commit.
type ChangeSet []FieldChange

// Set appends a change with the value stored as-is.
func (cs ChangeSet) Set(column string, value any) ChangeSet {
	return append(cs, FieldChange{Column: column, Value: value})
}

// SetString appends a string change, mapping the empty string to NULL.
// This mirrors the interaction shell's convention that entering nothing
// for a field means "clear it".
func (cs ChangeSet) SetString(column, value string) ChangeSet {
	if value == "" {
		return append(cs, FieldChange{Column: column})
	}
	return append(cs, FieldChange{Column: column, Value: value})
}

// SetInt appends an integer change, mapping zero to NULL. Zero is not a
// meaningful value for any of the nullable integer columns here (years,
// reference ids), so it doubles as the clear marker.
func (cs ChangeSet) SetInt(column string, value int64) ChangeSet {
	if value == 0 {
		return append(cs, FieldChange{Column: column})
	}
	return append(cs, FieldChange{Column: column, Value: value})
}

// Empty reports whether the set contains no changes.
func (cs ChangeSet) Empty() bool { return len(cs) == 0 }
