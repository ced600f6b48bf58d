// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/adityav2131/major-project-sub000/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the engine's collections and attaches JSON-Schema
// validators. Servers without collMod support (some DocumentDB versions)
// are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("actors", actorsSchema())
	ensure("teams", teamsSchema())
	ensure("team_memberships", membershipsSchema())
	ensure("mentor_capacities", capacitiesSchema())
	ensure("projects", projectsSchema())
	ensure("panels", panelsSchema())
	ensure("submissions", submissionsSchema())

	// Written by the notification sink; free-form details.
	ensure("notifications", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum[T ~string](vals ...T) bson.M {
	a := bson.A{}
	for _, v := range vals {
		a = append(a, string(v))
	}
	return bson.M{"enum": a}
}

func object(required bson.A, props bson.M) bson.M {
	return bson.M{"$jsonSchema": bson.M{"bsonType": "object", "required": required, "properties": props}}
}

func actorsSchema() bson.M {
	return object(bson.A{"role", "created_at"}, bson.M{
		"role":       enum(models.RoleStudent, models.RoleFaculty, models.RoleAdmin, models.RoleExternalEvaluator),
		"created_at": bson.M{"bsonType": "date"},
	})
}

func teamsSchema() bson.M {
	return object(bson.A{"name", "members", "max_members", "status", "version"}, bson.M{
		"name":        nonBlank,
		"members":     bson.M{"bsonType": "array"},
		"leader_id":   bson.M{"bsonType": "string"},
		"mentor_id":   bson.M{"bsonType": "string"},
		"max_members": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
		"status":      enum(models.TeamForming, models.TeamActive, models.TeamCompleted, models.TeamSuspended),
		"version":     bson.M{"bsonType": bson.A{"int", "long"}},
	})
}

func membershipsSchema() bson.M {
	return object(bson.A{"team_id", "joined_at"}, bson.M{
		"team_id":   nonBlank,
		"joined_at": bson.M{"bsonType": "date"},
	})
}

func capacitiesSchema() bson.M {
	return object(bson.A{"max_teams_allowed", "current_teams_count"}, bson.M{
		"max_teams_allowed":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
		"current_teams_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
	})
}

func projectsSchema() bson.M {
	return object(bson.A{"team_id", "title", "current_phase", "phases"}, bson.M{
		"team_id":       nonBlank,
		"title":         nonBlank,
		"current_phase": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": models.PhaseCount},
		"phases": bson.M{
			"bsonType": "array",
			"minItems": models.PhaseCount,
			"maxItems": models.PhaseCount,
			"items": bson.M{
				"bsonType": "object",
				"required": bson.A{"phase", "status"},
				"properties": bson.M{
					"status": enum(models.StatusNotSubmitted, models.StatusPendingReview,
						models.StatusApproved, models.StatusRejected, models.StatusRevisionNeeded),
				},
			},
		},
		"completed": bson.M{"bsonType": "bool"},
	})
}

func panelsSchema() bson.M {
	return object(bson.A{"name", "type", "faculty_ids", "status"}, bson.M{
		"name": nonBlank,
		"type": enum(models.PanelSynopsis, models.PanelPhase1, models.PanelPhase2, models.PanelPhase3, models.PanelPhase4),
		"faculty_ids": bson.M{
			"bsonType":    "array",
			"minItems":    models.PanelSize,
			"maxItems":    models.PanelSize,
			"uniqueItems": true,
		},
		"project_ids": bson.M{"bsonType": "array", "uniqueItems": true},
		"status":      enum(models.PanelActive, models.PanelInactive),
	})
}

func submissionsSchema() bson.M {
	return object(bson.A{"project_id", "phase", "kind", "artifact_ref", "submitted_by"}, bson.M{
		"project_id":     nonBlank,
		"phase":          bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": models.PhaseCount},
		"kind":           enum(models.KindAbstract, models.KindSynopsis, models.KindPresentation, models.KindFinalReport),
		"artifact_ref":   nonBlank,
		"submitted_by":   nonBlank,
		"revision_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
	})
}
