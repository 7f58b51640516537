package directory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphummel/logsheet/internal/directory"
)

func TestDefault_Groups(t *testing.T) {
	groups := directory.Default().Groups()
	assert.Equal(t, []string{
		"C.O. FORWARDING PUMP M",
		"C.O. FORWARDING PUMP STAGE 5 M",
		"DIESAL F. PUMP 5",
		"STAGE 7 DIESAL",
	}, groups)
}

func TestDefault_EquipmentCounts(t *testing.T) {
	d := directory.Default()
	want := map[string]int{
		"C.O. FORWARDING PUMP M":         16,
		"C.O. FORWARDING PUMP STAGE 5 M": 20,
		"DIESAL F. PUMP 5":               10,
		"STAGE 7 DIESAL":                 8,
	}
	for group, n := range want {
		assert.Len(t, d.Equipment(group), n, group)
	}
}

func TestDefault_OrderPreserved(t *testing.T) {
	list := directory.Default().Equipment("STAGE 7 DIESAL")
	require.NotEmpty(t, list)
	assert.Equal(t, "6600A", list[0].Name)
	assert.Equal(t, "6900B", list[len(list)-1].Name)
}

func TestFind(t *testing.T) {
	d := directory.Default()

	e, ok := d.Find("0000 0046 1172")
	require.True(t, ok)
	assert.Equal(t, "5500D", e.Name)

	_, ok = d.Find("A1")
	assert.False(t, ok)
}

func TestGroupOf(t *testing.T) {
	d := directory.Default()

	g, ok := d.GroupOf("0000 0046 0816")
	require.True(t, ok)
	assert.Equal(t, "DIESAL F. PUMP 5", g)

	_, ok = d.GroupOf("unknown")
	assert.False(t, ok)
}

func TestEquipment_UnknownGroup(t *testing.T) {
	assert.Nil(t, directory.Default().Equipment("nope"))
}

// Callers must not be able to change the compiled-in data.
func TestEquipment_ReturnsCopy(t *testing.T) {
	d := directory.Default()
	list := d.Equipment("STAGE 7 DIESAL")
	list[0].Name = "tampered"

	assert.Equal(t, "6600A", d.Equipment("STAGE 7 DIESAL")[0].Name)
}

func TestNew_RejectsDuplicateID(t *testing.T) {
	doc := []byte(`
groups:
  - name: A
    equipment:
      - {id: "1", name: x}
  - name: B
    equipment:
      - {id: "1", name: y}
`)
	_, err := directory.New(doc)
	assert.Error(t, err)
}

func TestNew_RejectsDuplicateGroup(t *testing.T) {
	doc := []byte(`
groups:
  - name: A
  - name: A
`)
	_, err := directory.New(doc)
	assert.Error(t, err)
}

func TestNew_InvalidYAML(t *testing.T) {
	_, err := directory.New([]byte("groups: [unterminated"))
	assert.Error(t, err)
}
