// Package postgres provides a PostgreSQL implementation of the storage
// interfaces, using lib/pq and, when the extension is installed, pgvector.
package postgres

// Schema contains the SQL statements to create the five core tables.
const Schema = `
CREATE TABLE IF NOT EXISTS sticky_notes (
    id TEXT PRIMARY KEY,
    source_type TEXT NOT NULL,
    source_id TEXT NOT NULL,
    original_content TEXT NOT NULL,
    extracted_text TEXT NOT NULL,
    category TEXT NOT NULL CHECK (category IN
        ('opportunity', 'follow_up', 'deal_intel', 'relationship', 'competitive', 'timing', 'urgent')),
    importance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    urgency_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    confidence_score DOUBLE PRECISION NOT NULL CHECK (confidence_score >= 0.5),
    amount TEXT,
    timeline TEXT,
    counterparty_name TEXT,
    counterparty_role TEXT,
    company TEXT,
    contact_email TEXT,
    memory_id TEXT,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'action_taken', 'false_positive')),
    follow_up_date TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sticky_notes_status ON sticky_notes(status, created_at);
CREATE INDEX IF NOT EXISTS idx_sticky_notes_source ON sticky_notes(source_type, source_id);

CREATE TABLE IF NOT EXISTS processed_sources (
    source_type TEXT NOT NULL,
    source_id TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    sticky_count INTEGER NOT NULL DEFAULT 0,
    processed_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (source_type, source_id)
);

CREATE INDEX IF NOT EXISTS idx_processed_sources_hash ON processed_sources(content_hash);

CREATE TABLE IF NOT EXISTS memory_items (
    seq BIGSERIAL,
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    category TEXT NOT NULL,
    importance_level INTEGER NOT NULL CHECK (importance_level BETWEEN 1 AND 4),
    retention_days INTEGER NOT NULL,
    vector BYTEA,
    metadata JSONB,
    device_id TEXT NOT NULL,
    access_count INTEGER NOT NULL DEFAULT 0,
    last_accessed TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memory_items_category ON memory_items(category);
CREATE INDEX IF NOT EXISTS idx_memory_items_cleanup ON memory_items(importance_level, created_at);
CREATE INDEX IF NOT EXISTS idx_memory_items_device ON memory_items(device_id, created_at);

CREATE TABLE IF NOT EXISTS memory_relationships (
    memory_id_a TEXT NOT NULL,
    memory_id_b TEXT NOT NULL,
    relationship_type TEXT NOT NULL,
    strength DOUBLE PRECISION NOT NULL CHECK (strength >= 0 AND strength <= 1),
    created_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (memory_id_a, memory_id_b, relationship_type)
);

CREATE INDEX IF NOT EXISTS idx_memory_relationships_b ON memory_relationships(memory_id_b);

CREATE TABLE IF NOT EXISTS sync_log (
    seq BIGSERIAL,
    id TEXT PRIMARY KEY,
    device_id TEXT NOT NULL,
    operation TEXT NOT NULL,
    memory_id TEXT NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL,
    conflict_resolution TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_log_device ON sync_log(device_id, status, timestamp);
`

// MigrationPgvector adds a native vector column alongside the BYTEA copy.
// Only applied when the vector extension is available.
const MigrationPgvector = `
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'memory_items' AND column_name = 'embedding'
    ) THEN
        ALTER TABLE memory_items ADD COLUMN embedding vector;
    END IF;
END
$$;
`
