package addressing

import "fmt"

// Format renders the full address for a numbered, lettered shelter,
// e.g. Format("A1", 3, "B") == "A1-3B".
func Format(campID string, structureNumber int, letter string) string {
	return fmt.Sprintf("%s-%d%s", campID, structureNumber, letter)
}

// Fallback is the degraded address for shelters excluded from numbering.
// It is deliberately just the sub-block id: a signal that the record needs
// manual resolution, not an error.
func Fallback(campID string) string {
	return campID
}
