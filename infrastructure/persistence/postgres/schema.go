package postgres

// The actors and job_applications tables belong to the identity and job-board
// services; they are created here only so a standalone database works.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS actors(
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		headline TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL CHECK (role IN ('individual', 'investor', 'organization', 'operator')),
		tier TEXT NOT NULL DEFAULT 'free' CHECK (tier IN ('free', 'premium')),
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS connection_edges(
		id TEXT PRIMARY KEY,
		from_actor_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		to_actor_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		type TEXT NOT NULL CHECK (type IN ('pending', 'connected', 'rejected')),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CHECK (from_actor_id <> to_actor_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS connection_edges_pair_idx
		ON connection_edges (LEAST(from_actor_id, to_actor_id), GREATEST(from_actor_id, to_actor_id))`,
	`CREATE INDEX IF NOT EXISTS connection_edges_from_created_idx
		ON connection_edges (from_actor_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS connection_edges_to_type_idx
		ON connection_edges (to_actor_id, type)`,
	`CREATE TABLE IF NOT EXISTS intro_requests(
		id TEXT PRIMARY KEY,
		requester_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		target_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		status TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'rejected')),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT intro_requests_pair UNIQUE (requester_id, target_id)
	)`,
	`CREATE INDEX IF NOT EXISTS intro_requests_target_status_idx
		ON intro_requests (target_id, status)`,
	`CREATE TABLE IF NOT EXISTS job_applications(
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		job_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS job_applications_actor_idx ON job_applications (actor_id)`,
}
