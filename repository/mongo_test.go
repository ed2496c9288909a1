package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockMongo(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

// sentCommand returns the next command the driver sent, checking its name.
func sentCommand(mt *mtest.T, name string) bson.Raw {
	mt.Helper()
	ev := mt.GetStartedEvent()
	require.NotNil(mt, ev, "no %s command sent", name)
	require.Equal(mt, name, ev.CommandName)
	return ev.Command
}

func firstElem(cmd bson.Raw, key string) bson.Raw {
	return cmd.Lookup(key).Array().Index(0).Value().Document()
}

func ns(mt *mtest.T, coll string) string {
	return mt.DB.Name() + "." + coll
}
