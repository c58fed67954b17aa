package common

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	id := GenerateUUID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, GenerateUUID())
}

func TestRecipeIDFormat(t *testing.T) {
	assert.Regexp(t, `^recipe-\d+-[a-z0-9]{1,6}$`, NewRecipeID())
	assert.Regexp(t, `^themealdb-\d+-[a-z0-9]{1,6}$`, PrefixedRecipeID("themealdb"))
}
