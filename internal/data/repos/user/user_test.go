package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/neurobridge-progress/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
)

func TestUserRepoExists(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, []*types.User{{Email: "a@example.test", DisplayName: "A"}})
	if err != nil || len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: %+v err=%v", created, err)
	}
	ok, err := repo.Exists(dbc, created[0].ID)
	if err != nil || !ok {
		t.Fatalf("Exists(created)=%v err=%v", ok, err)
	}
	ok, err = repo.Exists(dbc, uuid.New())
	if err != nil || ok {
		t.Fatalf("Exists(random)=%v err=%v", ok, err)
	}
	got, err := repo.GetByID(dbc, created[0].ID)
	if err != nil || got == nil || got.Email != "a@example.test" {
		t.Fatalf("GetByID: %+v err=%v", got, err)
	}
}
