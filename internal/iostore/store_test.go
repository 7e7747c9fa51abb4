package iostore_test

import (
	"context"
	"os"
	"testing"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/internal/iostore"
	"github.com/medtext/omoplink/internal/iotesting"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/errcode"
	"github.com/medtext/omoplink/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStore(t *testing.T) (*iostore.Store, *config.Config) {
	t.Helper()
	cfg := iotesting.NewConfigWithVocabulary(t)
	src := &sources.Config{Dir: cfg.Store.SourcesDir}

	store, err := iostore.NewBuilder(cfg).Build(context.Background(), src)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, cfg
}

func TestBuildStats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	store, _ := buildStore(t)

	info := store.Stats()
	assert.Len(t, info.Fingerprint, 64)
	assert.NotEmpty(t, info.UUID)
	assert.NotEmpty(t, info.CreatedAt)
	assert.Equal(t, int64(8), info.ConceptCount)
	assert.Equal(t, int64(6), info.AncestorCount)
	assert.Equal(t, int64(3), info.RelationshipCount)
	assert.Equal(t, info.Fingerprint, store.Fingerprint())
}

func TestBuildIsReproducible(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	cfg := iotesting.NewConfigWithVocabulary(t)
	src := &sources.Config{Dir: cfg.Store.SourcesDir}

	fp1, err := iostore.SourceFingerprint(src)
	require.NoError(t, err)
	fp2, err := iostore.SourceFingerprint(src)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2, "same sources must give same fingerprint")

	// Changed sources give a different fingerprint.
	iotesting.AppendRows(t, src.Dir, "CONCEPT_ANCESTOR.csv",
		"1002\t1002\t0\t0")
	fp3, err := iostore.SourceFingerprint(src)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestFind(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	cfg := iotesting.NewConfigWithVocabulary(t)
	src := &sources.Config{Dir: cfg.Store.SourcesDir}

	_, err := iostore.Find(cfg, src)
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.StoreNotFoundError, gnErr.Code)

	built, err := iostore.NewBuilder(cfg).Build(context.Background(), src)
	require.NoError(t, err)
	defer built.Close()

	found, err := iostore.Find(cfg, src)
	require.NoError(t, err)
	defer found.Close()
	assert.Equal(t, built.Fingerprint(), found.Fingerprint())
}

func TestOpenMissing(t *testing.T) {
	_, err := iostore.Open("/no/such/store.db")
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.StoreOpenError, gnErr.Code)
}

func TestBuildMissingTable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	cfg := iotesting.NewConfigWithVocabulary(t)
	require.NoError(t,
		os.Remove(cfg.Store.SourcesDir+"/DOMAIN.csv"))
	src := &sources.Config{Dir: cfg.Store.SourcesDir}

	_, err := iostore.NewBuilder(cfg).Build(context.Background(), src)
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.SchemaMissingTableError, gnErr.Code)
}

func TestBuildMissingColumn(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	cfg := iotesting.NewConfigWithVocabulary(t)
	// Rewrite DOMAIN.csv without the required domain_name column.
	broken := "domain_id\tdomain_concept_id\nCondition\t19\n"
	require.NoError(t, os.WriteFile(
		cfg.Store.SourcesDir+"/DOMAIN.csv", []byte(broken), 0644))
	src := &sources.Config{Dir: cfg.Store.SourcesDir}

	_, err := iostore.NewBuilder(cfg).Build(context.Background(), src)
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.SchemaMissingColumnError, gnErr.Code)
}

func TestBuildBadRow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	cfg := iotesting.NewConfigWithVocabulary(t)
	iotesting.AppendRows(t, cfg.Store.SourcesDir, "CONCEPT_ANCESTOR.csv",
		"1001\tnot-a-number\t1\t1")
	src := &sources.Config{Dir: cfg.Store.SourcesDir}

	_, err := iostore.NewBuilder(cfg).Build(context.Background(), src)
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.SchemaBadRowError, gnErr.Code)
}

func TestBuildDanglingReference(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	cfg := iotesting.NewConfigWithVocabulary(t)
	iotesting.AppendRows(t, cfg.Store.SourcesDir, "CONCEPT_ANCESTOR.csv",
		"9999\t1002\t1\t1")
	src := &sources.Config{Dir: cfg.Store.SourcesDir}

	fp, err := iostore.SourceFingerprint(src)
	require.NoError(t, err)

	_, err = iostore.NewBuilder(cfg).Build(context.Background(), src)
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.SchemaDanglingRefError, gnErr.Code)

	// A failed build never publishes an artifact.
	_, statErr := os.Stat(config.StorePath(cfg.HomeDir, fp))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLookupByName(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	store, _ := buildStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		text    string
		domains []string
		ids     []int64
	}{
		{
			// Exact match first, then prefix by name length. The
			// deprecated concept 1008 also starts with Pneumonia and
			// must stay hidden.
			name: "exact then prefix",
			text: "pneumonia",
			ids:  []int64{iotesting.Pneumonia, iotesting.PneumoniaICD},
		},
		{
			name: "case insensitive",
			text: "PNEUMONIA",
			ids:  []int64{iotesting.Pneumonia, iotesting.PneumoniaICD},
		},
		{
			name:    "domain filter",
			text:    "pneumonia",
			domains: []string{"Procedure"},
			ids:     nil,
		},
		{
			name: "no match",
			text: "zzz",
			ids:  nil,
		},
		{
			name: "empty text",
			text: "   ",
			ids:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := store.LookupByName(ctx, tt.text, tt.domains...)
			require.NoError(t, err)

			var ids []int64
			for _, c := range res {
				ids = append(ids, c.ConceptID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestConceptByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	store, _ := buildStore(t)
	ctx := context.Background()

	c, err := store.ConceptByID(ctx, iotesting.Pneumonia)
	require.NoError(t, err)
	assert.Equal(t, "Pneumonia", c.ConceptName)
	assert.Equal(t, "Condition", c.DomainID)
	assert.True(t, c.IsStandard())
	assert.True(t, c.IsValid())

	retired, err := store.ConceptByID(ctx, iotesting.RetiredPneumonia)
	require.NoError(t, err)
	assert.False(t, retired.IsValid())

	_, err = store.ConceptByID(ctx, 424242)
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.ConceptNotFoundError, gnErr.Code)
}

func TestConceptsByIDs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	store, _ := buildStore(t)
	ctx := context.Background()

	ids := []int64{
		iotesting.Pneumonia,
		iotesting.Aspirin,
		iotesting.Pneumonia, // duplicates collapse
	}
	res, err := store.ConceptsByIDs(ctx, ids)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Pneumonia", res[iotesting.Pneumonia].ConceptName)
	assert.Equal(t, "aspirin", res[iotesting.Aspirin].ConceptName)

	res, err = store.ConceptsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = store.ConceptsByIDs(ctx, []int64{iotesting.Pneumonia, 424242})
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.ConceptNotFoundError, gnErr.Code)
}

func TestAncestorsOf(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	store, _ := buildStore(t)
	ctx := context.Background()

	res, err := store.AncestorsOf(ctx, iotesting.BacterialPneumonia, -1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{
		iotesting.BacterialPneumonia: 0,
		iotesting.Pneumonia:          1,
		iotesting.RespiratoryDisease: 2,
	}, res)

	res, err = store.AncestorsOf(ctx, iotesting.BacterialPneumonia, 1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{
		iotesting.BacterialPneumonia: 0,
		iotesting.Pneumonia:          1,
	}, res)

	// No closure rows at all: the reflexive entry is still there.
	res, err = store.AncestorsOf(ctx, iotesting.Aspirin, -1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{iotesting.Aspirin: 0}, res)

	_, err = store.AncestorsOf(ctx, 424242, -1)
	require.Error(t, err)
}

func TestIsAncestor(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	store, _ := buildStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		a, b int64
		want bool
	}{
		{"grandparent", iotesting.RespiratoryDisease, iotesting.BacterialPneumonia, true},
		{"parent", iotesting.Pneumonia, iotesting.ViralPneumonia, true},
		{"inverted", iotesting.BacterialPneumonia, iotesting.RespiratoryDisease, false},
		{"self", iotesting.Pneumonia, iotesting.Pneumonia, true},
		{"siblings", iotesting.BacterialPneumonia, iotesting.ViralPneumonia, false},
		{"unknown id", 424242, iotesting.Pneumonia, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.IsAncestor(ctx, tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	store, _ := buildStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		a, b int64
		dist int
		ok   bool
	}{
		{"self", iotesting.Pneumonia, iotesting.Pneumonia, 0, true},
		{"self without closure row", iotesting.Aspirin, iotesting.Aspirin, 0, true},
		{"down two", iotesting.RespiratoryDisease, iotesting.BacterialPneumonia, 2, true},
		{"up two", iotesting.BacterialPneumonia, iotesting.RespiratoryDisease, 2, true},
		{"parent", iotesting.Pneumonia, iotesting.BacterialPneumonia, 1, true},
		{"siblings unrelated", iotesting.BacterialPneumonia, iotesting.ViralPneumonia, 0, false},
		{"cross domain", iotesting.Pneumonia, iotesting.Aspirin, 0, false},
		{"unknown id", 424242, iotesting.Pneumonia, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ok, err := store.Distance(ctx, tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.dist, dist)
		})
	}
}

func TestStandardFor(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	store, _ := buildStore(t)
	ctx := context.Background()

	res, err := store.StandardFor(ctx, iotesting.PneumoniaICD)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, iotesting.Pneumonia, res[0].ConceptID)
	assert.True(t, res[0].IsStandard())

	res, err = store.StandardFor(ctx, iotesting.Appendectomy)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSnomedCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	store, _ := buildStore(t)
	ctx := context.Background()

	code, err := store.SnomedCode(ctx, iotesting.Pneumonia)
	require.NoError(t, err)
	assert.Equal(t, iotesting.PneumoniaSnomedCode, code)

	code, err = store.SnomedCode(ctx, iotesting.Aspirin)
	require.NoError(t, err)
	assert.Empty(t, code, "RxNorm concepts have no SNOMED code")

	_, err = store.SnomedCode(ctx, 424242)
	require.Error(t, err)
}

func TestEachEmbeddable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store build in short mode")
	}

	ctx := context.Background()

	t.Run("all domains", func(t *testing.T) {
		store, _ := buildStore(t)

		var ids []int64
		err := store.EachEmbeddable(ctx, func(id int64, name string) error {
			ids = append(ids, id)
			return nil
		})
		require.NoError(t, err)
		// Every valid concept in ascending order; 1008 is deprecated.
		assert.Equal(t, []int64{1001, 1002, 1003, 1004, 1005, 1006, 1007}, ids)
	})

	t.Run("domain filter", func(t *testing.T) {
		cfg := iotesting.NewConfigWithVocabulary(t)
		cfg.Update([]config.Option{
			config.OptEmbedDomains([]string{"Condition"}),
		})
		src := &sources.Config{Dir: cfg.Store.SourcesDir}

		store, err := iostore.NewBuilder(cfg).Build(context.Background(), src)
		require.NoError(t, err)
		defer store.Close()

		var ids []int64
		err = store.EachEmbeddable(ctx, func(id int64, name string) error {
			ids = append(ids, id)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1001, 1002, 1003, 1004, 1005}, ids)
	})

	t.Run("callback error stops stream", func(t *testing.T) {
		store, _ := buildStore(t)

		count := 0
		wantErr := assert.AnError
		err := store.EachEmbeddable(ctx, func(id int64, name string) error {
			count++
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)
		assert.Equal(t, 1, count)
	})
}
