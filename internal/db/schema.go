package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS close_attempt (
    id         BIGSERIAL PRIMARY KEY,
    base       TEXT        NOT NULL,
    method     TEXT        NOT NULL,
    outcome    TEXT        NOT NULL,
    tx_id      TEXT        NOT NULL DEFAULT '',
    reason     TEXT        NOT NULL DEFAULT '',
    attempts   INT         NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS close_attempt_base_idx ON close_attempt (base, created_at DESC);

CREATE TABLE IF NOT EXISTS notification_log (
    batch_id   TEXT        NOT NULL,
    position   INT         NOT NULL,
    channel    TEXT        NOT NULL,
    handle     TEXT        NOT NULL,
    delivered  BOOLEAN     NOT NULL,
    reason     TEXT        NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (batch_id, position)
);
`
