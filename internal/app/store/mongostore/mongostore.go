// internal/app/store/mongostore/mongostore.go

// Package mongostore implements store.Store on MongoDB.
//
// A unit of work is a session transaction with snapshot reads and majority
// writes. Every update filters on {_id, version}; an update that matches
// nothing, a write conflict, and a TransientTransactionError all surface as
// store.ErrConflict. The transaction is driven by hand (not
// Session.WithTransaction) so that a conflict is reported to the caller
// instead of being retried inside the driver.
//
// Deployments without transaction support (standalone servers) are refused
// unless the store is built WithNonTransactional. In that mode units run
// without a session and rely on the version guards alone: a race on one
// document is still caught, but a unit that writes several documents can be
// left half-applied when a later write fails.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/txn"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// Collection names.
const (
	CollActors      = "actors"
	CollTeams       = "teams"
	CollMemberships = "team_memberships"
	CollCapacities  = "mentor_capacities"
	CollProjects    = "projects"
	CollPanels      = "panels"
	CollSubmissions = "submissions"
)

// MongoDB server error code for a write conflict inside a transaction.
const codeWriteConflict = 112

var _ store.Store = (*Store)(nil)

// ErrTransactionsUnsupported is returned by Atomically when the deployment
// cannot run multi-document transactions and the store was not built
// WithNonTransactional.
var ErrTransactionsUnsupported = errors.New("mongostore: deployment does not support transactions")

// Store is the MongoDB store.
type Store struct {
	reader
	client     *mongo.Client
	log        *zap.Logger
	allowNoTxn bool
	noTxn      atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithNonTransactional lets the store run on a deployment without
// transactions, giving up all-or-nothing units of work.
func WithNonTransactional() Option {
	return func(s *Store) { s.allowNoTxn = true }
}

// New returns a Store over db. The logger may be nil.
func New(db *mongo.Database, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		reader: reader{db: db},
		client: db.Client(),
		log:    log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SupportsTransactions reports whether the deployment is a replica set
// member or a mongos router, the topologies that run transactions.
func (s *Store) SupportsTransactions(ctx context.Context) (bool, error) {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := s.db.Client().Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return false, err
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid", nil
}

// Atomically runs fn in a session transaction.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if s.noTxn.Load() {
		return translate(fn(ctx, &tx{reader: s.reader}))
	}

	err := s.transact(ctx, fn)
	if err != nil && isDriverError(err) && txn.IsNotSupported(err) {
		if !s.allowNoTxn {
			return fmt.Errorf("%w: %v", ErrTransactionsUnsupported, err)
		}
		s.noTxn.Store(true)
		s.log.Warn("transactions not supported; units of work fall back to version guards only",
			zap.Error(err))
		return translate(fn(ctx, &tx{reader: s.reader}))
	}
	return translate(err)
}

func (s *Store) transact(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(opts); err != nil {
			return err
		}
		if err := fn(sc, &tx{reader: s.reader}); err != nil {
			_ = sess.AbortTransaction(context.WithoutCancel(sc))
			return err
		}
		if err := sc.Err(); err != nil {
			_ = sess.AbortTransaction(context.WithoutCancel(sc))
			return err
		}
		return sess.CommitTransaction(sc)
	})
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// isDriverError reports whether err came from the driver rather than from
// the engine's own rules.
func isDriverError(err error) bool {
	var de *errs.Error
	if errors.As(err, &de) {
		return false
	}
	return !errors.Is(err, store.ErrConflict) &&
		!errors.Is(err, store.ErrDuplicate) &&
		!errors.Is(err, store.ErrNotFound)
}

// translate maps driver conflicts onto store.ErrConflict.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel(driverTransientLabel) || se.HasErrorCode(codeWriteConflict) {
			return store.ErrConflict
		}
	}
	return err
}

const driverTransientLabel = "TransientTransactionError"

/* -------------------------------------------------------------------------- */
/* reads                                                                      */
/* -------------------------------------------------------------------------- */

type reader struct{ db *mongo.Database }

func (r reader) c(name string) *mongo.Collection { return r.db.Collection(name) }

func findOne[T any](ctx context.Context, c *mongo.Collection, filter bson.M) (T, error) {
	var out T
	if err := c.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return out, store.ErrNotFound
		}
		return out, translate(err)
	}
	return out, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M, sort bson.D) ([]T, error) {
	cur, err := c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

var byCreated = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (r reader) Actor(ctx context.Context, id string) (models.Actor, error) {
	return findOne[models.Actor](ctx, r.c(CollActors), bson.M{"_id": id})
}

func (r reader) ListActors(ctx context.Context, role models.Role) ([]models.Actor, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	return findAll[models.Actor](ctx, r.c(CollActors), filter, bson.D{{Key: "_id", Value: 1}})
}

func (r reader) Team(ctx context.Context, id string) (models.Team, error) {
	return findOne[models.Team](ctx, r.c(CollTeams), bson.M{"_id": id})
}

func (r reader) ListTeams(ctx context.Context, f store.TeamFilter) ([]models.Team, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.MentorID != "" {
		filter["mentor_id"] = f.MentorID
	}
	return findAll[models.Team](ctx, r.c(CollTeams), filter, byCreated)
}

func (r reader) MembershipOf(ctx context.Context, actorID string) (models.TeamMembership, error) {
	return findOne[models.TeamMembership](ctx, r.c(CollMemberships), bson.M{"_id": actorID})
}

func (r reader) MentorCapacity(ctx context.Context, mentorID string) (models.MentorCapacity, error) {
	return findOne[models.MentorCapacity](ctx, r.c(CollCapacities), bson.M{"_id": mentorID})
}

func (r reader) ListMentorCapacities(ctx context.Context) ([]models.MentorCapacity, error) {
	return findAll[models.MentorCapacity](ctx, r.c(CollCapacities), bson.M{}, bson.D{{Key: "_id", Value: 1}})
}

func (r reader) Project(ctx context.Context, id string) (models.Project, error) {
	return findOne[models.Project](ctx, r.c(CollProjects), bson.M{"_id": id})
}

func (r reader) ProjectByTeam(ctx context.Context, teamID string) (models.Project, error) {
	return findOne[models.Project](ctx, r.c(CollProjects), bson.M{"team_id": teamID})
}

func (r reader) Panel(ctx context.Context, id string) (models.EvaluationPanel, error) {
	return findOne[models.EvaluationPanel](ctx, r.c(CollPanels), bson.M{"_id": id})
}

func (r reader) ListPanels(ctx context.Context, f store.PanelFilter) ([]models.EvaluationPanel, error) {
	filter := bson.M{}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return findAll[models.EvaluationPanel](ctx, r.c(CollPanels), filter, byCreated)
}

func (r reader) PanelsForProject(ctx context.Context, projectID string) ([]models.EvaluationPanel, error) {
	return findAll[models.EvaluationPanel](ctx, r.c(CollPanels), bson.M{"project_ids": projectID}, byCreated)
}

func (r reader) Submission(ctx context.Context, projectID string, phase models.Phase) (models.Submission, error) {
	return findOne[models.Submission](ctx, r.c(CollSubmissions), bson.M{"project_id": projectID, "phase": phase})
}

/* -------------------------------------------------------------------------- */
/* writes                                                                     */
/* -------------------------------------------------------------------------- */

type tx struct{ reader }

var _ store.Tx = (*tx)(nil)

func (t *tx) insert(ctx context.Context, coll string, doc any) error {
	if _, err := t.c(coll).InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return store.ErrDuplicate
		}
		return translate(err)
	}
	return nil
}

// replace writes doc over the document whose _id and version match. It
// reports ErrConflict when nothing matched.
func (t *tx) replace(ctx context.Context, coll, id string, version int64, doc any) error {
	res, err := t.c(coll).ReplaceOne(ctx, bson.M{"_id": id, "version": version}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrConflict
	}
	return nil
}

func (t *tx) InsertActor(ctx context.Context, a models.Actor) error {
	return t.insert(ctx, CollActors, a)
}

func (t *tx) InsertTeam(ctx context.Context, team *models.Team) error {
	cp := team.Clone()
	cp.Version = 1
	if err := t.insert(ctx, CollTeams, cp); err != nil {
		return err
	}
	team.Version = 1
	return nil
}

func (t *tx) UpdateTeam(ctx context.Context, team *models.Team) error {
	cp := team.Clone()
	cp.Version++
	if err := t.replace(ctx, CollTeams, team.ID, team.Version, cp); err != nil {
		return err
	}
	team.Version = cp.Version
	return nil
}

func (t *tx) InsertMembership(ctx context.Context, m models.TeamMembership) error {
	return t.insert(ctx, CollMemberships, m)
}

func (t *tx) DeleteMembership(ctx context.Context, actorID string) error {
	_, err := t.c(CollMemberships).DeleteOne(ctx, bson.M{"_id": actorID})
	return translate(err)
}

func (t *tx) PutMentorCapacity(ctx context.Context, c *models.MentorCapacity) error {
	cp := *c
	cp.Version++
	var err error
	if c.Version == 0 {
		if err = t.insert(ctx, CollCapacities, cp); errors.Is(err, store.ErrDuplicate) {
			err = store.ErrConflict
		}
	} else {
		err = t.replace(ctx, CollCapacities, c.MentorID, c.Version, cp)
	}
	if err != nil {
		return err
	}
	c.Version = cp.Version
	return nil
}

func (t *tx) InsertProject(ctx context.Context, p *models.Project) error {
	cp := p.Clone()
	cp.Version = 1
	if err := t.insert(ctx, CollProjects, cp); err != nil {
		return err
	}
	p.Version = 1
	return nil
}

func (t *tx) UpdateProject(ctx context.Context, p *models.Project) error {
	cp := p.Clone()
	cp.Version++
	if err := t.replace(ctx, CollProjects, p.ID, p.Version, cp); err != nil {
		return err
	}
	p.Version = cp.Version
	return nil
}

func (t *tx) InsertPanel(ctx context.Context, p *models.EvaluationPanel) error {
	cp := p.Clone()
	cp.Version = 1
	if err := t.insert(ctx, CollPanels, cp); err != nil {
		return err
	}
	p.Version = 1
	return nil
}

func (t *tx) UpdatePanel(ctx context.Context, p *models.EvaluationPanel) error {
	cp := p.Clone()
	cp.Version++
	if err := t.replace(ctx, CollPanels, p.ID, p.Version, cp); err != nil {
		return err
	}
	p.Version = cp.Version
	return nil
}

func (t *tx) PutSubmission(ctx context.Context, s *models.Submission) error {
	cp := s.Clone()
	cp.Version++
	var err error
	if s.Version == 0 {
		// The (project_id, phase) unique index rejects a second record.
		if err = t.insert(ctx, CollSubmissions, cp); errors.Is(err, store.ErrDuplicate) {
			err = store.ErrConflict
		}
	} else {
		err = t.replace(ctx, CollSubmissions, s.ID, s.Version, cp)
	}
	if err != nil {
		return err
	}
	s.Version = cp.Version
	return nil
}
