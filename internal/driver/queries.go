package driver

// IndexQueries are run once at startup.
var IndexQueries = []string{
	"CREATE INDEX ON :Session(uuid);",
	"CREATE INDEX ON :Element(session_uuid);",
	"CREATE INDEX ON :Element(kind);",
}

const (
	SaveSessionQuery = `
		MERGE (s:Session {uuid: $uuid})
		SET s.title = $title,
			s.transcript = $transcript,
			s.language = $language,
			s.created_at = $created_at
		RETURN s.uuid AS uuid
	`

	GetSessionQuery = `
		MATCH (s:Session {uuid: $uuid})
		RETURN s.uuid AS uuid,
			s.title AS title,
			s.transcript AS transcript,
			s.created_at AS created_at
	`

	DeleteSessionElementsQuery = `
		MATCH (s:Session {uuid: $session_uuid})-[:HAS_ELEMENT]->(e:Element)
		DETACH DELETE e
	`

	// SaveElementsQuery expects $elements as a list of
	// {uuid, kind, position, data} maps, data being the JSON record.
	SaveElementsQuery = `
		MATCH (s:Session {uuid: $session_uuid})
		UNWIND $elements AS el
		CREATE (s)-[:HAS_ELEMENT]->(e:Element {
			uuid: el.uuid,
			session_uuid: $session_uuid,
			kind: el.kind,
			position: el.position,
			data: el.data,
			created_at: $created_at
		})
		RETURN count(e) AS saved
	`

	GetSessionElementsQuery = `
		MATCH (s:Session {uuid: $session_uuid})-[:HAS_ELEMENT]->(e:Element)
		RETURN e.kind AS kind, e.position AS position, e.data AS data
		ORDER BY e.kind, e.position
	`
)
