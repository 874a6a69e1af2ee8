package lobby

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ravenfell/gametable/internal/game/battlefield"
	"github.com/ravenfell/gametable/internal/game/registry"
	"github.com/ravenfell/gametable/internal/storage/mongostore"
	"github.com/ravenfell/gametable/internal/testutil"
)

func goblinInput() battlefield.Input {
	return battlefield.Input{
		Requested: &battlefield.Requested{
			Placements: []battlefield.Placement{
				{
					Square: "A1",
					Source: battlefield.SourceEmbedded,
					Path:   "goblin",
					ControlledBy: battlefield.Control{
						Kind: battlefield.ControlAI,
						ID:   "g1",
					},
				},
			},
		},
	}
}

func newFixture(t *testing.T) (*Service, *testutil.MemoryStore, *registry.Registry) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store := testutil.NewMemoryStore()
	store.PutLobby(mongostore.Lobby{ID: "lobby1", Name: "The Tavern", GMID: "gm1", Players: []string{"p1", "p2"}})
	store.PutEntity(battlefield.EntityDefinition{Name: "goblin", MaxHP: 7, ArmorClass: 15, Speed: 30})

	reg := registry.New(logger, 8)
	cooker := battlefield.NewCooker(store, store, logger)
	return NewService(store, cooker, reg, logger), store, reg
}

func TestCreateCombatIndexedUntilEnded(t *testing.T) {
	svc, _, reg := newFixture(t)
	ctx := context.Background()

	id, err := svc.CreateCombat(ctx, "lobby1", "Boss Fight", goblinInput(), "gm1", []string{"p1", "p2"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	assert.Equal(t, []string{id}, svc.ActiveCombats("lobby1"))

	sess, ok := reg.Get(id)
	require.True(t, ok)
	require.NoError(t, sess.End("gm1"))

	assert.Empty(t, svc.ActiveCombats("lobby1"))
	_, ok = reg.Get(id)
	assert.False(t, ok)
}

func TestCreateCombatUnknownLobby(t *testing.T) {
	svc, _, _ := newFixture(t)

	_, err := svc.CreateCombat(context.Background(), "lobby9", "Boss Fight", goblinInput(), "gm1", nil)
	assert.ErrorIs(t, err, ErrLobbyNotFound)
	assert.Empty(t, svc.ActiveCombats("lobby9"))
}

func TestCreateCombatRequiresOrganizer(t *testing.T) {
	svc, _, _ := newFixture(t)

	_, err := svc.CreateCombat(context.Background(), "lobby1", "Boss Fight", goblinInput(), "p1", []string{"p1"})
	assert.ErrorIs(t, err, ErrNotOrganizer)
	assert.Empty(t, svc.ActiveCombats("lobby1"))
}

func TestCreateCombatCookFailureCreatesNothing(t *testing.T) {
	svc, _, reg := newFixture(t)

	input := goblinInput()
	input.Requested.Placements = append(input.Requested.Placements, input.Requested.Placements[0])

	_, err := svc.CreateCombat(context.Background(), "lobby1", "Boss Fight", input, "gm1", nil)
	assert.ErrorIs(t, err, battlefield.ErrDuplicateSquare)
	assert.Empty(t, svc.ActiveCombats("lobby1"))
	assert.Zero(t, reg.Count())
}

func TestActiveCombatsOrderedPerLobby(t *testing.T) {
	svc, store, _ := newFixture(t)
	store.PutLobby(mongostore.Lobby{ID: "lobby2", GMID: "gm2"})
	ctx := context.Background()

	first, err := svc.CreateCombat(ctx, "lobby1", "First", goblinInput(), "gm1", nil)
	require.NoError(t, err)
	second, err := svc.CreateCombat(ctx, "lobby1", "Second", goblinInput(), "gm1", nil)
	require.NoError(t, err)
	other, err := svc.CreateCombat(ctx, "lobby2", "Elsewhere", goblinInput(), "gm2", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{first, second}, svc.ActiveCombats("lobby1"))
	assert.Equal(t, []string{other}, svc.ActiveCombats("lobby2"))
}

func TestSummaries(t *testing.T) {
	svc, store, reg := newFixture(t)
	store.PutUser(mongostore.User{ID: "p1", Handle: "p1-handle", Nickname: "Alia"})
	store.PutUser(mongostore.User{ID: "p2", Handle: "p2-handle"})
	ctx := context.Background()

	id, err := svc.CreateCombat(ctx, "lobby1", "Boss Fight", goblinInput(), "gm1", []string{"p1", "p2"})
	require.NoError(t, err)

	sess, ok := reg.Get(id)
	require.True(t, ok)
	_, err = sess.HandlePlayer("p1")
	require.NoError(t, err)
	_, err = sess.HandlePlayer("p2")
	require.NoError(t, err)
	require.NoError(t, sess.Start("gm1"))
	require.NoError(t, sess.AdvanceRound("gm1"))

	summaries := svc.Summaries(ctx, "lobby1")
	require.Len(t, summaries, 1)

	got := summaries[0]
	assert.Equal(t, id, got.SessionID)
	assert.Equal(t, "Boss Fight", got.Nickname)
	assert.True(t, got.Active)
	assert.Equal(t, 2, got.Round)
	// Nickname when set, handle as the fallback.
	assert.Equal(t, []string{"Alia", "p2-handle"}, got.Players)
}

func TestSummariesPendingSessionHidesRound(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.CreateCombat(ctx, "lobby1", "Boss Fight", goblinInput(), "gm1", nil)
	require.NoError(t, err)

	summaries := svc.Summaries(ctx, "lobby1")
	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].Active)
	assert.Zero(t, summaries[0].Round)
}

func TestSummariesSkipsVanishedUser(t *testing.T) {
	svc, store, reg := newFixture(t)
	store.PutUser(mongostore.User{ID: "p1", Handle: "p1-handle"})
	ctx := context.Background()

	id, err := svc.CreateCombat(ctx, "lobby1", "Boss Fight", goblinInput(), "gm1", []string{"p1", "p2"})
	require.NoError(t, err)

	sess, _ := reg.Get(id)
	_, err = sess.HandlePlayer("p1")
	require.NoError(t, err)
	_, err = sess.HandlePlayer("p2")
	require.NoError(t, err)

	// p2 has no user document; the summary omits them and keeps going.
	summaries := svc.Summaries(ctx, "lobby1")
	require.Len(t, summaries, 1)
	assert.Equal(t, []string{"p1-handle"}, summaries[0].Players)
}

func TestSummariesEmptyLobby(t *testing.T) {
	svc, _, _ := newFixture(t)
	assert.Empty(t, svc.Summaries(context.Background(), "lobby1"))
}
