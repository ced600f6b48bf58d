// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/adityav2131/major-project-sub000/internal/app/notify"
	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/metrics"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends every later hook needs. Mongo fields are nil
// with the memory backend; Redis is nil unless redis_addr is set.
type DBDeps struct {
	Store   store.Store
	Backend string

	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Redis *redis.Client

	Metrics *metrics.Metrics
	Notify  *notify.Dispatcher
}
