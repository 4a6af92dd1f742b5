package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferID_AcceptsNumbersAndStrings(t *testing.T) {
	var offers []RawOffer
	require.NoError(t, json.Unmarshal([]byte(`[{"nid":11},{"nid":"12"},{"nid":"n-7"},{"nid":null},{}]`), &offers))

	ids := make([]string, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.NID.String())
	}
	assert.Equal(t, []string{"11", "12", "n-7", "", ""}, ids)

	var bad RawOffer
	assert.Error(t, json.Unmarshal([]byte(`{"nid":true}`), &bad))
}

func TestOfferID_Marshal(t *testing.T) {
	out, err := json.Marshal([]RawOffer{{NID: "11"}, {NID: "n-7"}, {}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"nid":11,"title":"","path":""},{"nid":"n-7","title":"","path":""},{"title":"","path":""}]`, string(out))
}
