package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSchool(t *testing.T) {
	t.Run("complete record", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Code: "12345678", Name: "Listnamn", Latitude: "59.33", Longitude: "18.06"},
			Details: &SchoolUnitDetails{
				Name:                   "Björkens skola",
				PrincipalOrganizerType: "Kommun",
				Addresses: []Address{
					{Type: "POSTADRESS", StreetAddress: "Box 1", City: "Postort"},
					{Type: AddressTypeVisiting, StreetAddress: "Skolgatan 4", PostalCode: "11122", City: "Stockholm"},
				},
				TypeOfSchooling: []TypeOfSchooling{
					{Code: SchoolingCompulsory, DisplayName: "Grundskola", SchoolYears: []string{"9", "F", "1", "2", "6"}},
				},
			},
			StatisticsGr: &GrStatistics{
				AverageGradesMeritRating9thGrade: []Observation{existing("221,4", "2024"), existing("218,0", "2023")},
				RatioOfPupils6thGradePassed:      []Observation{existing("79,0", "2024")},
			},
		}

		s := NormalizeSchool(raw)
		assert.Equal(t, "12345678", s.ID)
		assert.Equal(t, "Björkens skola", s.Name)
		assert.InDelta(t, 59.33, s.Latitude, 1e-9)
		assert.InDelta(t, 18.06, s.Longitude, 1e-9)
		assert.Equal(t, "Stockholm", s.Municipality)
		assert.Equal(t, OwnershipMunicipal, s.Ownership)
		assert.Equal(t, CategoryF9, s.Category)
		assert.Equal(t, []string{"Grundskola"}, s.SchoolingTypes)
		assert.Equal(t, []string{"F", "1", "2", "6", "9"}, s.GradeYears)
		assert.Equal(t, "Skolgatan 4", s.Street)
		assert.Equal(t, "11122", s.PostalCode)
		require.NotNil(t, s.Statistics.MeritRating)
		assert.InDelta(t, 221.4, *s.Statistics.MeritRating, 1e-9)
		assert.Len(t, s.Statistics.MeritHistory, 2)
	})

	t.Run("missing detail record degrades to defaults", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Code: "87654321", Name: "Okänd skola", Latitude: "57.7", Longitude: "11.97"},
		}

		s := NormalizeSchool(raw)
		assert.Equal(t, "Okänd skola", s.Name)
		assert.Equal(t, MunicipalityUnknown, s.Municipality)
		assert.Equal(t, OwnershipIndependent, s.Ownership)
		assert.Empty(t, s.Street)
		assert.Empty(t, s.PostalCode)
		assert.Empty(t, s.City)
		assert.Nil(t, s.Statistics.MeritRating)
	})

	t.Run("independent organizer", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Code: "1", Name: "Friskolan", Latitude: "59", Longitude: "18"},
			Details:    &SchoolUnitDetails{PrincipalOrganizerType: "Enskild"},
		}
		assert.Equal(t, OwnershipIndependent, NormalizeSchool(raw).Ownership)
	})

	t.Run("visiting address without city keeps unknown municipality", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Code: "1", Name: "Skolan", Latitude: "59", Longitude: "18"},
			Details: &SchoolUnitDetails{
				Addresses: []Address{{Type: AddressTypeVisiting, StreetAddress: "Vägen 1"}},
			},
		}
		s := NormalizeSchool(raw)
		assert.Equal(t, MunicipalityUnknown, s.Municipality)
		assert.Equal(t, "Vägen 1", s.Street)
	})
}

func TestSortSchools(t *testing.T) {
	withMerit := func(id string, category Category, merit float64) NormalizedSchool {
		return NormalizedSchool{ID: id, Category: category, Statistics: SchoolStatistics{MeritRating: floatPtr(merit)}}
	}

	t.Run("category priority before performance", func(t *testing.T) {
		schools := []NormalizedSchool{
			withMerit("gym", CategoryGymnasium, 330),
			withMerit("f6", CategoryF6, 300),
			{ID: "other", Category: CategoryOther},
			withMerit("79", Category79, 320),
			withMerit("f9-low", CategoryF9, 180),
		}
		SortSchools(schools)

		ids := make([]string, len(schools))
		for i, s := range schools {
			ids[i] = s.ID
		}
		assert.Equal(t, []string{"f9-low", "79", "f6", "gym", "other"}, ids)
	})

	t.Run("merit descending within category", func(t *testing.T) {
		schools := []NormalizedSchool{
			withMerit("low", CategoryF9, 250),
			withMerit("high", CategoryF9, 310),
		}
		SortSchools(schools)
		assert.Equal(t, "high", schools[0].ID)
		assert.Equal(t, "low", schools[1].ID)
	})

	t.Run("grade-6 pass rate used when merit absent", func(t *testing.T) {
		schools := []NormalizedSchool{
			{ID: "none", Category: CategoryF6},
			{ID: "pass", Category: CategoryF6, Statistics: SchoolStatistics{Grade6PassRate: floatPtr(85)}},
		}
		SortSchools(schools)
		assert.Equal(t, "pass", schools[0].ID)
	})

	t.Run("stable tiebreak on id", func(t *testing.T) {
		schools := []NormalizedSchool{
			{ID: "b", Category: CategoryOther},
			{ID: "a", Category: CategoryOther},
		}
		SortSchools(schools)
		assert.Equal(t, "a", schools[0].ID)
	})
}

func TestBuildSnapshot(t *testing.T) {
	fakeNow := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fakeNow))
	defer SetClock(nil)

	fetchedAt := time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC)
	schools := []NormalizedSchool{
		{ID: "a", Category: CategoryF9, Statistics: SchoolStatistics{MeritRating: floatPtr(250), Grade6PassRate: floatPtr(80)}},
		{ID: "b", Category: CategoryGymnasium, Statistics: SchoolStatistics{Programs: []ProgramResult{{ProgramCode: "NA"}}}},
		{ID: "c", Category: CategoryOther},
	}

	snap := BuildSnapshot(schools, fetchedAt)

	assert.Equal(t, fetchedAt, snap.Metadata.FetchedAt)
	assert.Equal(t, fakeNow, snap.Metadata.ProcessedAt)
	assert.Equal(t, 3, snap.Metadata.TotalSchools)
	assert.Equal(t, 1, snap.Metadata.Categories[CategoryF9])
	assert.Equal(t, 1, snap.Metadata.Categories[CategoryGymnasium])
	assert.Equal(t, 1, snap.Metadata.Categories[CategoryOther])
	assert.Equal(t, 0, snap.Metadata.Categories[CategoryF6])
	assert.Equal(t, 1, snap.Metadata.WithMeritData)
	assert.Equal(t, 1, snap.Metadata.WithGrade6Data)
	assert.Equal(t, 1, snap.Metadata.WithGyData)

	assert.Equal(t, "a", snap.Schools[0].ID)
	assert.Equal(t, "b", snap.Schools[1].ID)
	assert.Equal(t, "c", snap.Schools[2].ID)

	t.Run("zero fetch time falls back to processing time", func(t *testing.T) {
		snap := BuildSnapshot(nil, time.Time{})
		assert.Equal(t, fakeNow, snap.Metadata.FetchedAt)
	})
}
