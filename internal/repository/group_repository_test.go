package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/models"
)

func TestGroupCreateDefaultsAndMembers(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	anna := seedStudent(t, db, "Anna", nil)
	bram := seedStudent(t, db, "Bram", nil)

	group := seedGroup(t, db, "Rockets", bram.ID, anna.ID)

	detail, err := NewGroupRepository(db).FindByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmptyDailyScores(), detail.DailyScores)
	assert.Equal(t, models.StringList{}, detail.Badges)
	assert.Equal(t, []string{anna.ID, bram.ID}, detail.Members)

	student, err := NewStudentRepository(db).FindByID(ctx, anna.ID)
	require.NoError(t, err)
	require.NotNil(t, student.GroupID)
	assert.Equal(t, group.ID, *student.GroupID)
}

func TestGroupCreateWithUnknownMemberRollsBack(t *testing.T) {
	db := newStore(t)
	repo := NewGroupRepository(db)

	err := repo.Create(context.Background(), &models.Group{Name: "Rockets"}, []string{"missing"})
	require.ErrorIs(t, err, ErrForeignKey)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGroupUpdateReplacesMembers(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	repo := NewGroupRepository(db)
	anna := seedStudent(t, db, "Anna", nil)
	bram := seedStudent(t, db, "Bram", nil)
	group := seedGroup(t, db, "Rockets", anna.ID)

	group.Name = "Rocket Squad"
	require.NoError(t, repo.Update(ctx, group, []string{bram.ID}))

	detail, err := repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rocket Squad", detail.Name)
	assert.Equal(t, []string{bram.ID}, detail.Members)

	released, err := NewStudentRepository(db).FindByID(ctx, anna.ID)
	require.NoError(t, err)
	assert.Nil(t, released.GroupID)

	group.Emoji = "🛸"
	require.NoError(t, repo.Update(ctx, group, nil))
	detail, err = repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bram.ID}, detail.Members)
}

func TestGroupMembershipMovesBetweenGroups(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	repo := NewGroupRepository(db)
	anna := seedStudent(t, db, "Anna", nil)
	first := seedGroup(t, db, "Rockets", anna.ID)
	second := seedGroup(t, db, "Comets", anna.ID)

	firstMembers, err := repo.MemberIDs(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, firstMembers)
	secondMembers, err := repo.MemberIDs(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{anna.ID}, secondMembers)
}

func TestGroupDeleteRejectedWhileMembersRemain(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	repo := NewGroupRepository(db)
	group := seedGroup(t, db, "Rockets")
	student := seedStudent(t, db, "Anna", &group.ID)

	_, err := repo.Delete(ctx, group.ID)
	require.ErrorIs(t, err, ErrInUse)

	_, err = repo.FindByID(ctx, group.ID)
	require.NoError(t, err)

	require.NoError(t, NewStudentRepository(db).Delete(ctx, student.ID))
	files, err := repo.Delete(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, files)

	var dangling int
	require.NoError(t, db.Get(&dangling, `SELECT COUNT(*) FROM students s LEFT JOIN student_groups g ON g.id = s.group_id WHERE s.group_id IS NOT NULL AND g.id IS NULL`))
	assert.Zero(t, dangling)
	_, err = repo.Delete(ctx, group.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGroupFindByNameIsCaseInsensitive(t *testing.T) {
	db := newStore(t)
	group := seedGroup(t, db, "Rockets")

	found, err := NewGroupRepository(db).FindByName(context.Background(), "  rockets ")
	require.NoError(t, err)
	assert.Equal(t, group.ID, found.ID)
}

func TestGroupDailyScores(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	repo := NewGroupRepository(db)
	group := seedGroup(t, db, "Rockets")

	window := models.FloatList{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, repo.UpdateDailyScores(ctx, group.ID, window, 3))

	detail, err := repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, detail.Streak)
	assert.Equal(t, window, detail.DailyScores)

	groups, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.NotNil(t, groups[0].Members)
}

func TestGroupListKeepsCreationOrder(t *testing.T) {
	db := newStore(t)
	zeta := seedGroup(t, db, "Zeta")
	alpha := seedGroup(t, db, "Alpha")

	groups, err := NewGroupRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, zeta.ID, groups[0].ID)
	assert.Equal(t, alpha.ID, groups[1].ID)
}
