package memory

import (
	"testing"

	"github.com/simaogato/fundfolio-backend/internal/adapter/repository/repotest"
)

func TestStore(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repotest.Repositories {
		s := NewStore()
		return repotest.Repositories{Funds: s.Funds(), Holdings: s.Holdings()}
	})
}
