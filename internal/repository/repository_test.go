package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/policy"
)

// openTestDB starts a throwaway postgres and migrates the schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("todos"),
		postgres.WithUsername("todo"),
		postgres.WithPassword("todo"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.All()...))
	return db
}

type fixture struct {
	db      *gorm.DB
	owner   domain.User
	member  domain.User
	outside domain.User
	space   domain.Space
	list    domain.List
	task    domain.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	sys := policy.WithPrincipal(context.Background(), policy.SystemPrincipal)
	users := NewGormUserRepository(db)
	spaces := NewGormSpaceRepository(db)

	f := &fixture{db: db}
	f.owner = domain.User{Email: "owner@example.com", Name: "Owner"}
	f.member = domain.User{Email: "member@example.com", Name: "Member"}
	f.outside = domain.User{Email: "outside@example.com", Name: "Outside"}
	for _, u := range []*domain.User{&f.owner, &f.member, &f.outside} {
		require.NoError(t, users.Create(sys, u))
	}

	f.space = domain.Space{Name: "Home", Slug: "home", OwnerID: f.owner.ID}
	require.NoError(t, spaces.Create(sys, &f.space))
	require.NoError(t, spaces.AddMember(sys, f.space.ID, f.member.ID, domain.RoleUser))

	f.list = domain.List{SpaceID: f.space.ID, OwnerID: f.owner.ID, Title: "Groceries"}
	require.NoError(t, NewGormListRepository(db).Create(sys, &f.list))

	f.task = domain.Task{Title: "Read a Book", SpaceID: f.space.ID, OwnerID: f.owner.ID}
	require.NoError(t, NewGormTaskRepository(db).Create(sys, &f.task))
	return f
}

func as(u domain.User) context.Context {
	return policy.WithPrincipal(context.Background(), policy.Principal{UserID: u.ID})
}

func TestSpaceVisibilityFollowsMembership(t *testing.T) {
	f := newFixture(t)
	spaces := NewGormSpaceRepository(f.db)

	got, err := spaces.FindBySlug(as(f.member), "home")
	require.NoError(t, err)
	assert.Equal(t, f.space.ID, got.ID)

	_, err = spaces.FindBySlug(as(f.outside), "home")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = spaces.FindBySlug(context.Background(), "home")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPrivateListsAreOwnerOnly(t *testing.T) {
	f := newFixture(t)
	lists := NewGormListRepository(f.db)

	private := domain.List{SpaceID: f.space.ID, Title: "Secret", Private: true}
	require.NoError(t, lists.Create(as(f.owner), &private))

	_, err := lists.FindByID(as(f.owner), private.ID)
	require.NoError(t, err)
	_, err = lists.FindByID(as(f.member), private.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	visible, err := lists.FindBySpace(as(f.member), f.space.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, f.list.ID, visible[0].ID)
}

func TestTodoLifecycle(t *testing.T) {
	f := newFixture(t)
	todos := NewGormTodoRepository(f.db)
	ctx := as(f.member)

	todo := domain.Todo{ListID: f.list.ID, TaskID: f.task.ID}
	require.NoError(t, todos.Create(ctx, &todo))
	assert.Equal(t, f.member.ID, todo.OwnerID)

	found, err := todos.FindMany(ctx, TodoQuery{ListID: f.list.ID, Include: Include{Owner: true, Task: true}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Read a Book", found[0].Task.Title)
	assert.Equal(t, "Member", found[0].Owner.Name)
	assert.Nil(t, found[0].CompletedAt)

	now := time.Now()
	updated, err := todos.SetCompletedAt(ctx, todo.ID, &now)
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)

	updated, err = todos.SetCompletedAt(ctx, todo.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)

	_, err = todos.SetCompletedAt(as(f.outside), todo.ID, &now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, todos.Delete(as(f.outside), todo.ID), domain.ErrNotFound)

	require.NoError(t, todos.Delete(ctx, todo.ID))
	assert.ErrorIs(t, todos.Delete(ctx, todo.ID), domain.ErrNotFound)
}

func TestTodoCreateRequiresConnectTargets(t *testing.T) {
	f := newFixture(t)
	todos := NewGormTodoRepository(f.db)

	err := todos.Create(as(f.outside), &domain.Todo{ListID: f.list.ID, TaskID: f.task.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = todos.Create(as(f.member), &domain.Todo{ListID: f.list.ID, TaskID: "00000000-0000-0000-0000-000000000000"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	other := domain.Space{Name: "Work", Slug: "work", OwnerID: f.member.ID}
	require.NoError(t, NewGormSpaceRepository(f.db).Create(as(f.member), &other))
	foreign := domain.Task{Title: "Ship it", SpaceID: other.ID, OwnerID: f.member.ID}
	require.NoError(t, NewGormTaskRepository(f.db).Create(as(f.member), &foreign))

	err = todos.Create(as(f.member), &domain.Todo{ListID: f.list.ID, TaskID: foreign.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTaskCreateAndOrdering(t *testing.T) {
	f := newFixture(t)
	tasks := NewGormTaskRepository(f.db)

	err := tasks.Create(as(f.outside), &domain.Task{Title: "Nope", SpaceID: f.space.ID, OwnerID: f.outside.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	newer := domain.Task{Title: "Write a Letter", SpaceID: f.space.ID, OwnerID: f.owner.ID}
	require.NoError(t, tasks.Create(as(f.member), &newer))

	found, err := tasks.FindMany(as(f.member), TaskQuery{SpaceID: f.space.ID})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Write a Letter", found[0].Title)

	found, err = tasks.FindMany(as(f.member), TaskQuery{SpaceID: f.space.ID, Order: OldestFirst})
	require.NoError(t, err)
	assert.Equal(t, "Read a Book", found[0].Title)
}

func TestDuplicateSlugIsConflict(t *testing.T) {
	f := newFixture(t)
	sys := policy.WithPrincipal(context.Background(), policy.SystemPrincipal)
	err := NewGormSpaceRepository(f.db).Create(sys, &domain.Space{Name: "Again", Slug: "home", OwnerID: f.owner.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := as(f.owner)

	_, err := NewGormListRepository(f.db).FindByID(ctx, "oops")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = NewGormTaskRepository(f.db).FindByID(ctx, "oops")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = NewGormTodoRepository(f.db).FindByID(ctx, "oops", Include{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = NewGormSpaceRepository(f.db).FindByID(ctx, "oops")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
