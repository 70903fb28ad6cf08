package datastore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerolabel/aerolabel-go/internal/errors"
)

func testLabel(fileName, originalFileName string) *Label {
	return &Label{
		FileName:         fileName,
		OriginalFileName: originalFileName,
		TypeID:           "A320",
		TypeName:         "Airbus A320",
		AirlineID:        "DLH",
		AirlineName:      "Lufthansa",
		Registration:     "D-AIZZ",
		Clarity:          0.9,
		Occlusion:        0.1,
		ReviewStatus:     ReviewPending,
	}
}

func TestInsertLabel_DuplicateIsConflict(t *testing.T) {
	t.Parallel()

	ds := createDatabase(t, createTestSettings(t))

	require.NoError(t, ds.InsertLabel(testLabel("A320-0001.jpg", "orig1.jpg")))

	// Same archived name
	err := ds.InsertLabel(testLabel("A320-0001.jpg", "orig2.jpg"))
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	// Same original image under a different archived name
	err = ds.InsertLabel(testLabel("A320-0002.jpg", "orig1.jpg"))
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestHasLabelForSource(t *testing.T) {
	t.Parallel()

	ds := createDatabase(t, createTestSettings(t))

	require.NoError(t, ds.InsertLabel(testLabel("A320-0001.jpg", "orig1.jpg")))

	labeled, err := ds.HasLabelForSource("orig1.jpg")
	require.NoError(t, err)
	assert.True(t, labeled)

	labeled, err = ds.HasLabelForSource("orig2.jpg")
	require.NoError(t, err)
	assert.False(t, labeled)
}

func TestNextSequence(t *testing.T) {
	t.Parallel()

	ds := createDatabase(t, createTestSettings(t))

	seq, err := ds.NextSequence("A320")
	require.NoError(t, err)
	assert.Equal(t, 1, seq, "empty table starts at 1")

	require.NoError(t, ds.InsertLabel(testLabel("A320-0001.jpg", "orig1.jpg")))
	require.NoError(t, ds.InsertLabel(testLabel("A320-0007.jpg", "orig2.jpg")))

	seq, err = ds.NextSequence("A320")
	require.NoError(t, err)
	assert.Equal(t, 8, seq, "continues past the highest existing sequence")

	// Other types count independently
	b737 := testLabel("B737-0003.png", "orig3.jpg")
	b737.TypeID = "B737"
	require.NoError(t, ds.InsertLabel(b737))

	seq, err = ds.NextSequence("B737")
	require.NoError(t, err)
	assert.Equal(t, 4, seq)
}

func TestNextSequence_PastFourDigits(t *testing.T) {
	t.Parallel()

	ds := createDatabase(t, createTestSettings(t))

	require.NoError(t, ds.InsertLabel(testLabel("A320-9999.jpg", "orig1.jpg")))
	require.NoError(t, ds.InsertLabel(testLabel("A320-10000.jpg", "orig2.jpg")))

	// "10000" sorts below "9999" lexically, the sequence must not regress
	seq, err := ds.NextSequence("A320")
	require.NoError(t, err)
	assert.Equal(t, 10001, seq)
}

func TestParseSequence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want int
		ok   bool
	}{
		{"A320-0001.jpg", 1, true},
		{"B737-0042.png", 42, true},
		{"A320-12.jpg", 12, true},
		{"A320.jpg", 0, false},
		{"A320-x.jpg", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseSequence(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.name)
		}
	}
}

func TestUpdateLabelReview(t *testing.T) {
	t.Parallel()

	ds := createDatabase(t, createTestSettings(t))

	require.NoError(t, ds.InsertLabel(testLabel("A320-0001.jpg", "orig1.jpg")))

	labels, total, err := ds.GetLabels(10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	require.NoError(t, ds.UpdateLabelReview(labels[0].ID, ReviewApproved, true))

	labels, _, err = ds.GetLabels(10, 0)
	require.NoError(t, err)
	assert.Equal(t, ReviewApproved, labels[0].ReviewStatus)
	assert.True(t, labels[0].AIApproved)

	err = ds.UpdateLabelReview(9999, ReviewApproved, false)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetLabels_Paging(t *testing.T) {
	t.Parallel()

	ds := createDatabase(t, createTestSettings(t))

	for i := 1; i <= 5; i++ {
		require.NoError(t, ds.InsertLabel(testLabel(
			fmt.Sprintf("A320-%04d.jpg", i),
			fmt.Sprintf("orig%d.jpg", i),
		)))
	}

	labels, total, err := ds.GetLabels(2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, labels, 2)
}

func TestGetLabelStats(t *testing.T) {
	t.Parallel()

	ds := createDatabase(t, createTestSettings(t))

	require.NoError(t, ds.InsertLabel(testLabel("A320-0001.jpg", "orig1.jpg")))
	require.NoError(t, ds.InsertLabel(testLabel("A320-0002.jpg", "orig2.jpg")))

	other := testLabel("B737-0001.jpg", "orig3.jpg")
	other.TypeID = "B737"
	other.TypeName = "Boeing 737"
	other.AirlineID = "RYR"
	other.AirlineName = "Ryanair"
	require.NoError(t, ds.InsertLabel(other))

	stats, err := ds.GetLabelStats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalLabeled)
	assert.EqualValues(t, 2, stats.ByType["A320"])
	assert.EqualValues(t, 1, stats.ByType["B737"])
	assert.EqualValues(t, 2, stats.ByAirline["DLH"])
	assert.EqualValues(t, 1, stats.ByAirline["RYR"])
}

func TestDiscardImage_Idempotent(t *testing.T) {
	t.Parallel()

	ds := createDatabase(t, createTestSettings(t))

	require.NoError(t, ds.DiscardImage("blurry.jpg"))
	require.NoError(t, ds.DiscardImage("blurry.jpg"))

	set, err := ds.DiscardedFilenames()
	require.NoError(t, err)
	assert.Len(t, set, 1)
	_, ok := set["blurry.jpg"]
	assert.True(t, ok)
}

func TestReferenceTables(t *testing.T) {
	t.Parallel()

	ds := createDatabase(t, createTestSettings(t))

	require.NoError(t, ds.AddAircraftType("A320", "Airbus A320"))
	require.NoError(t, ds.AddAircraftType("A320", "Airbus A320"))
	require.NoError(t, ds.AddAirline("DLH", "Lufthansa"))

	types, err := ds.GetAircraftTypes()
	require.NoError(t, err)
	assert.Len(t, types, 1)

	airlines, err := ds.GetAirlines()
	require.NoError(t, err)
	require.Len(t, airlines, 1)
	assert.Equal(t, "Lufthansa", airlines[0].Name)
}
