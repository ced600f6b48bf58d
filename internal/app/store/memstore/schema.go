package memstore

import "github.com/hashicorp/go-memdb"

const (
	tableActors      = "actors"
	tableTeams       = "teams"
	tableMemberships = "team_memberships"
	tableCapacities  = "mentor_capacities"
	tableProjects    = "projects"
	tablePanels      = "panels"
	tableSubmissions = "submissions"

	indexID    = "id"
	indexTeam  = "team"
	indexRole  = "role"
	indexPanel = "project"
	indexPhase = "project_phase"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableActors: {
				Name: tableActors,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexRole: {
						Name:    indexRole,
						Indexer: &memdb.StringFieldIndex{Field: "Role"},
					},
				},
			},
			tableTeams: {
				Name: tableTeams,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
			tableMemberships: {
				Name: tableMemberships,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ActorID"},
					},
				},
			},
			tableCapacities: {
				Name: tableCapacities,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "MentorID"},
					},
				},
			},
			tableProjects: {
				Name: tableProjects,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexTeam: {
						Name:    indexTeam,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "TeamID"},
					},
				},
			},
			tablePanels: {
				Name: tablePanels,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexPanel: {
						Name:         indexPanel,
						AllowMissing: true,
						Indexer:      &memdb.StringSliceFieldIndex{Field: "ProjectIDs"},
					},
				},
			},
			tableSubmissions: {
				Name: tableSubmissions,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexPhase: {
						Name:   indexPhase,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "ProjectID"},
								&memdb.IntFieldIndex{Field: "Phase"},
							},
						},
					},
				},
			},
		},
	}
}
