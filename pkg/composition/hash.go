package composition

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pharmatrust/drugtrace/internal/models"
)

// Canonicalize returns the unique serialized form of a composition used as
// hash input. Ingredients are sorted case-insensitively by name, object keys
// are sorted lexicographically, and no insignificant whitespace is emitted,
// so two semantically equal compositions always canonicalize to identical
// bytes regardless of input ordering.
func Canonicalize(c models.Composition) (string, error) {
	ingredients := make([]models.Ingredient, len(c.Ingredients))
	copy(ingredients, c.Ingredients)

	sort.SliceStable(ingredients, func(i, j int) bool {
		return strings.ToLower(ingredients[i].Name) < strings.ToLower(ingredients[j].Name)
	})

	// Marshal through maps: encoding/json writes map keys in sorted order
	// and produces compact output, which is exactly the canonical form.
	list := make([]map[string]interface{}, 0, len(ingredients))
	for _, ing := range ingredients {
		entry := map[string]interface{}{
			"name":     ing.Name,
			"quantity": ing.Quantity,
		}
		if ing.Percentage != nil {
			entry["percentage"] = *ing.Percentage
		}
		list = append(list, entry)
	}

	out, err := json.Marshal(map[string]interface{}{"ingredients": list})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Hash returns the 64-character lowercase hex SHA-256 digest of the
// canonical form of a composition.
func Hash(c models.Composition) (string, error) {
	canonical, err := Canonicalize(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// VerifyHash recomputes the composition hash and compares it to the expected
// value, ignoring hex case.
func VerifyHash(c models.Composition, expected string) (bool, error) {
	actual, err := Hash(c)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}

// HashString returns the SHA-256 digest of an arbitrary string as lowercase
// hex.
func HashString(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
