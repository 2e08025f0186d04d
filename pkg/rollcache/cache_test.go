package rollcache_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/calvinalkan/rollcache/pkg/rollcache"
	"github.com/calvinalkan/rollcache/pkg/rollcache/model"
)

func Test_New_Uses_Defaults_When_Sizes_Zero(t *testing.T) {
	t.Parallel()

	c := newCache(t, newTable(10), 0, 0)

	assert.Equal(t, rollcache.DefaultPageSize, c.PageSize())
	assert.Equal(t, rollcache.DefaultMaxWindow, c.MaxWindow())
	assert.Equal(t, rollcache.Range{First: 0, Length: 10}, c.OuterLimits())
	assert.Equal(t, rollcache.Range{First: 0}, c.Window(), "window starts empty at the first row")
	assert.True(t, c.Writable(), "model table accepts writes")
}

func Test_New_Raises_Default_MaxWindow_When_PageSize_Is_Larger(t *testing.T) {
	t.Parallel()

	c := newCache(t, newTable(10), 500, 0)

	assert.Equal(t, 500, c.MaxWindow())
}

func Test_New_Returns_Error_When_Arguments_Invalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		src  rollcache.Source[item]
		opts rollcache.Options[item]
	}{
		{name: "NilSource", src: nil},
		{name: "NegativePageSize", src: newTable(10), opts: rollcache.Options[item]{PageSize: -1}},
		{name: "MaxWindowBelowPageSize", src: newTable(10), opts: rollcache.Options[item]{PageSize: 100, MaxWindow: 50}},
		{name: "NegativeTotalLength", src: badTotal{}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			c, err := rollcache.New(t.Context(), testCase.src, testCase.opts)
			require.ErrorIs(t, err, rollcache.ErrInvalidArgument)
			assert.Nil(t, c)
		})
	}
}

func Test_New_Returns_SourceIO_When_TotalRange_Fails(t *testing.T) {
	t.Parallel()

	_, err := rollcache.New[item](t.Context(), failingTotal{}, rollcache.Options[item]{})

	require.ErrorIs(t, err, rollcache.ErrSourceIO)
	require.ErrorIs(t, err, model.ErrInjected, "source error must stay in the chain")
}

func Test_Get_Walks_Through_Near_And_Far_Misses_When_Reading_Forward(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	row, err := c.Get(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, table.Row(0), row)
	assert.Equal(t, rollcache.Range{First: 0, Length: 100}, c.Window())

	row, err = c.Get(t.Context(), 150)
	require.NoError(t, err)
	assert.Equal(t, table.Row(150), row)
	assert.Equal(t, rollcache.Range{First: 0, Length: 200}, c.Window(), "near miss extends to the page end")
	requireInvariants(t, c)

	row, err = c.Get(t.Context(), 900)
	require.NoError(t, err)
	assert.Equal(t, table.Row(900), row)
	assert.Equal(t, rollcache.Range{First: 900, Length: 100}, c.Window(), "far miss replaces the window")
	requireInvariants(t, c)

	wantFetches := []rollcache.Range{
		{First: 0, Length: 100},
		{First: 100, Length: 100},
		{First: 900, Length: 100},
	}
	if diff := cmp.Diff(wantFetches, table.Fetches); diff != "" {
		t.Fatalf("fetches mismatch (-want +got):\n%s", diff)
	}

	st := c.Stats()
	assert.Equal(t, uint64(3), st.Misses)
	assert.Equal(t, uint64(2), st.NearMisses)
	assert.Equal(t, uint64(1), st.FarMisses)
	assert.Equal(t, uint64(200), st.RowsEvicted, "reload evicts the whole old window")
}

func Test_Get_Does_Not_Fetch_When_Row_Is_In_Window(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.NoError(t, err)

	for _, index := range []int{0, 1, 50, 99} {
		row, err := c.Get(t.Context(), index)
		require.NoError(t, err)
		assert.Equal(t, table.Row(index), row)
	}

	assert.Len(t, table.Fetches, 1, "hits must not reach the source")
	assert.Equal(t, uint64(4), c.Stats().Hits)
}

func Test_Get_Returns_IndexOutOfRange_When_Row_Outside_Source(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	for _, index := range []int{-1, 1000, 5000} {
		_, err := c.Get(t.Context(), index)
		require.ErrorIs(t, err, rollcache.ErrIndexOutOfRange, "index %d", index)
	}

	assert.Empty(t, table.Fetches, "out of range reads must not reach the source")
}

func Test_Get_Returns_IndexOutOfRange_When_Source_Is_Empty(t *testing.T) {
	t.Parallel()

	table := newTable(0)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.ErrorIs(t, err, rollcache.ErrIndexOutOfRange)
	assert.True(t, c.IsEmpty())
}

func Test_Get_Evicts_Front_When_Window_Grows_Past_MaxWindow(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	for _, index := range []int{0, 250} {
		_, err := c.Get(t.Context(), index)
		require.NoError(t, err)
	}

	assert.Equal(t, rollcache.Range{First: 0, Length: 300}, c.Window())

	row, err := c.Get(t.Context(), 450)
	require.NoError(t, err)
	assert.Equal(t, table.Row(450), row)
	assert.Equal(t, rollcache.Range{First: 200, Length: 300}, c.Window(), "oldest rows are dropped")
	requireInvariants(t, c)

	rows := c.RowsForTesting()
	assert.Equal(t, table.Row(200), rows[0])
	assert.Equal(t, table.Row(499), rows[len(rows)-1])
}

func Test_Get_Slides_Window_When_Miss_Is_Between_One_And_Two_MaxWindows(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.NoError(t, err)

	row, err := c.Get(t.Context(), 450)
	require.NoError(t, err)
	assert.Equal(t, table.Row(450), row)
	assert.Equal(t, rollcache.Range{First: 200, Length: 300}, c.Window())
	assert.Equal(t, rollcache.Range{First: 200, Length: 300}, table.Fetches[1], "shift fetches only rows that stay")
	assert.Equal(t, uint64(1), c.Stats().Shifts)
	requireInvariants(t, c)
}

func Test_Get_Moves_Window_Left_When_Reading_Backward(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 900)
	require.NoError(t, err)
	assert.Equal(t, rollcache.Range{First: 900, Length: 100}, c.Window())

	row, err := c.Get(t.Context(), 850)
	require.NoError(t, err)
	assert.Equal(t, table.Row(850), row)
	assert.Equal(t, rollcache.Range{First: 800, Length: 200}, c.Window(), "near miss prepends down to the page start")
	requireInvariants(t, c)

	row, err = c.Get(t.Context(), 450)
	require.NoError(t, err)
	assert.Equal(t, table.Row(450), row)
	assert.Equal(t, rollcache.Range{First: 400, Length: 300}, c.Window())
	requireInvariants(t, c)

	rows := c.RowsForTesting()
	for i, got := range rows {
		require.Equal(t, table.Row(400+i), got, "row %d out of order", 400+i)
	}
}

func Test_Get_Keeps_Short_Read_When_Source_Returns_Fewer_Rows(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	table.ShortBy = 40
	c := newCache(t, table, 100, 300)

	row, err := c.Get(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, table.Row(0), row)
	assert.Equal(t, rollcache.Range{First: 0, Length: 60}, c.Window())
	requireInvariants(t, c)
}

func Test_Get_Replaces_Window_When_Prepend_Read_Is_Short(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 900)
	require.NoError(t, err)

	table.ShortBy = 40

	row, err := c.Get(t.Context(), 850)
	require.NoError(t, err)
	assert.Equal(t, table.Row(850), row)
	assert.Equal(t, rollcache.Range{First: 800, Length: 60}, c.Window(), "rows before a gap cannot join the window")
	requireInvariants(t, c)

	rows := c.RowsForTesting()
	assert.Equal(t, table.Row(800), rows[0])
}

func Test_Get_Returns_Inconsistent_When_Source_Returns_Nothing(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	table.ShortBy = 100
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.ErrorIs(t, err, rollcache.ErrInconsistent)
	requireInvariants(t, c)
}

func Test_Get_Truncates_And_Warns_When_Source_Returns_Extra_Rows(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	table := newTable(1000)

	c, err := rollcache.New[item](t.Context(), overfull{table}, rollcache.Options[item]{
		PageSize:  100,
		MaxWindow: 300,
		Logger:    zap.New(core),
	})
	require.NoError(t, err)

	_, err = c.Get(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, rollcache.Range{First: 0, Length: 100}, c.Window())
	requireInvariants(t, c)

	assert.Equal(t, 1, logs.FilterMessage("source returned rows outside the requested range").Len())
}

func Test_Get_Keeps_Window_When_Far_Fetch_Fails(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.NoError(t, err)

	table.FailAfter(0)

	_, err = c.Get(t.Context(), 900)
	require.ErrorIs(t, err, rollcache.ErrSourceIO)
	require.ErrorIs(t, err, model.ErrInjected)
	assert.Equal(t, rollcache.Range{First: 0, Length: 100}, c.Window(), "failed reload must keep the old window")
	requireInvariants(t, c)

	table.FailAfter(-1)

	row, err := c.Get(t.Context(), 900)
	require.NoError(t, err)
	assert.Equal(t, table.Row(900), row)
}

func Test_Get_Leaves_Valid_Window_When_Shift_Fetch_Fails(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.NoError(t, err)

	table.FailAfter(0)

	_, err = c.Get(t.Context(), 450)
	require.ErrorIs(t, err, rollcache.ErrSourceIO)
	requireInvariants(t, c)
	assert.False(t, c.ContainsIndex(450))
}

func Test_Refresh_Rereads_Rows_And_Limits_When_Source_Changed(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.NoError(t, err)

	table.Rows[5].Name = "changed"
	table.Rows = append(table.Rows, item{ID: 1001, Name: "appended"})

	stale, err := c.Get(t.Context(), 5)
	require.NoError(t, err)
	assert.Equal(t, "row-5", stale.Name, "window keeps the fetched copy until refresh")

	require.NoError(t, c.Refresh(t.Context()))
	assert.Equal(t, rollcache.Range{First: 0, Length: 1001}, c.OuterLimits())
	assert.Equal(t, rollcache.Range{First: 0, Length: 100}, c.Window())

	fresh, err := c.Get(t.Context(), 5)
	require.NoError(t, err)
	assert.Equal(t, "changed", fresh.Name)

	row, err := c.Get(t.Context(), 1000)
	require.NoError(t, err)
	assert.Equal(t, "appended", row.Name)
}

func Test_Refresh_Shrinks_Window_When_Source_Lost_Rows(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 950)
	require.NoError(t, err)
	assert.Equal(t, rollcache.Range{First: 950, Length: 50}, c.Window())

	table.Rows = table.Rows[:960]

	require.NoError(t, c.Refresh(t.Context()))
	assert.Equal(t, rollcache.Range{First: 950, Length: 10}, c.Window())
	requireInvariants(t, c)

	_, err = c.Get(t.Context(), 970)
	require.ErrorIs(t, err, rollcache.ErrIndexOutOfRange)
}

func Test_Refresh_Anchors_Empty_Window_On_Last_Row_When_Source_Shrank_Below_It(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 950)
	require.NoError(t, err)

	table.Rows = table.Rows[:900]

	require.NoError(t, c.Refresh(t.Context()))
	assert.Equal(t, rollcache.Range{First: 899, Length: 0}, c.Window())
	assert.True(t, c.OuterLimits().Contains(c.Window().First), "anchor must name a source row")
	requireInvariants(t, c)

	row, err := c.Get(t.Context(), 899)
	require.NoError(t, err)
	assert.Equal(t, "row-899", row.Name)
	requireInvariants(t, c)
}

func Test_Refresh_Keeps_State_When_Source_Fails(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.NoError(t, err)

	table.FailAfter(0)

	err = c.Refresh(t.Context())
	require.ErrorIs(t, err, rollcache.ErrSourceIO)
	assert.Equal(t, rollcache.Range{First: 0, Length: 100}, c.Window())
	requireInvariants(t, c)
}

func Test_SetPageSize_And_SetMaxWindow_Reject_Invalid_Combinations(t *testing.T) {
	t.Parallel()

	c := newCache(t, newTable(10), 100, 300)

	require.ErrorIs(t, c.SetPageSize(0), rollcache.ErrInvalidArgument)
	require.ErrorIs(t, c.SetPageSize(400), rollcache.ErrInvalidArgument)
	require.ErrorIs(t, c.SetMaxWindow(0), rollcache.ErrInvalidArgument)
	require.ErrorIs(t, c.SetMaxWindow(50), rollcache.ErrInvalidArgument)

	require.NoError(t, c.SetPageSize(50))
	require.NoError(t, c.SetMaxWindow(50))
	assert.Equal(t, 50, c.PageSize())
	assert.Equal(t, 50, c.MaxWindow())
}

func Test_Purge_Returns_Precondition_When_Run_Is_Invalid(t *testing.T) {
	t.Parallel()

	c := newCache(t, newTable(1000), 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		from, to int
	}{
		{name: "Reversed", from: 5, to: 3},
		{name: "BeforeStart", from: -1, to: 3},
		{name: "PastEnd", from: 90, to: 100},
		{name: "Middle", from: 10, to: 20},
	}

	for _, testCase := range testCases {
		err := c.PurgeForTesting(testCase.from, testCase.to)
		require.ErrorIs(t, err, rollcache.ErrPrecondition, testCase.name)
	}

	assert.Equal(t, rollcache.Range{First: 0, Length: 100}, c.Window(), "rejected purges must not change the window")
}

func Test_Purge_Drops_Rows_From_Either_Edge(t *testing.T) {
	t.Parallel()

	table := newTable(1000)
	c := newCache(t, table, 100, 300)

	_, err := c.Get(t.Context(), 0)
	require.NoError(t, err)

	require.NoError(t, c.PurgeForTesting(0, 9))
	assert.Equal(t, rollcache.Range{First: 10, Length: 90}, c.Window())

	require.NoError(t, c.PurgeForTesting(80, 89))
	assert.Equal(t, rollcache.Range{First: 10, Length: 80}, c.Window())
	requireInvariants(t, c)

	rows := c.RowsForTesting()
	assert.Equal(t, table.Row(10), rows[0])
	assert.Equal(t, table.Row(89), rows[len(rows)-1])
	assert.Equal(t, uint64(20), c.Stats().RowsEvicted)
}

func Test_Align_Snaps_Outward_To_Page_Boundaries(t *testing.T) {
	t.Parallel()

	c := newCache(t, newTable(1000), 100, 300)

	assert.Equal(t, 199, c.AlignForTesting(150), "row after the window snaps to its page end")
	assert.Equal(t, 99, c.AlignForTesting(0))

	_, err := c.Get(t.Context(), 900)
	require.NoError(t, err)

	assert.Equal(t, 800, c.AlignForTesting(850), "row before the window snaps to its page start")
	assert.Equal(t, 900, c.AlignForTesting(900), "row inside the window is kept")
}

func Test_Align_Measures_Pages_From_First_Source_Row(t *testing.T) {
	t.Parallel()

	table := newTable(100)
	table.First = 5
	c := newCache(t, table, 100, 300)

	assert.Equal(t, 104, c.AlignForTesting(5))
	assert.Equal(t, 104, c.AlignForTesting(50))

	short := newCache(t, newTable(150), 100, 300)
	assert.Equal(t, 149, short.AlignForTesting(120), "alignment is clamped into the source")
}

type badTotal struct{}

func (badTotal) TotalRange(context.Context) (rollcache.Range, error) {
	return rollcache.Range{Length: -1}, nil
}

func (badTotal) Fetch(context.Context, rollcache.Range) ([]item, error) { return nil, nil }

type failingTotal struct{}

func (failingTotal) TotalRange(context.Context) (rollcache.Range, error) {
	return rollcache.Range{}, model.ErrInjected
}

func (failingTotal) Fetch(context.Context, rollcache.Range) ([]item, error) { return nil, nil }

// overfull returns five rows more than asked for.
type overfull struct {
	table *model.Table[item]
}

func (o overfull) TotalRange(ctx context.Context) (rollcache.Range, error) {
	return o.table.TotalRange(ctx)
}

func (o overfull) Fetch(ctx context.Context, r rollcache.Range) ([]item, error) {
	rows, err := o.table.Fetch(ctx, r)
	if err != nil {
		return nil, err
	}

	for i := range 5 {
		rows = append(rows, item{ID: int64(-i), Name: "extra"})
	}

	return rows, nil
}
