package storage

const schema = `
-- A card and its scheduling state live in one row so that a review is
-- a single-row update guarded by the version stamp.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    ease_factor REAL NOT NULL,
    interval_days INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    due_at DATETIME NOT NULL,
    version INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_cards_due_at ON cards(due_at, id);
CREATE INDEX IF NOT EXISTS idx_cards_content_hash ON cards(content_hash);

-- Append-only review history. Rows outlive their card unless purged.
CREATE TABLE IF NOT EXISTS review_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL,
    grade INTEGER NOT NULL,
    resulting_interval INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_log_card ON review_log(card_id, reviewed_at);

CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS deck_cards (
    deck_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    PRIMARY KEY (deck_id, card_id),
    FOREIGN KEY (deck_id) REFERENCES decks(id),
    FOREIGN KEY (card_id) REFERENCES cards(id)
);

-- Import sources: local directories or git repositories that card
-- files are pulled from.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    last_scanned DATETIME
);

-- Which source a card came from, so reconciliation can prune cards
-- that disappeared upstream. Manually created cards have no row here.
CREATE TABLE IF NOT EXISTS source_cards (
    source_id INTEGER NOT NULL,
    card_id TEXT NOT NULL,
    PRIMARY KEY (source_id, card_id),
    FOREIGN KEY (source_id) REFERENCES sources(id),
    FOREIGN KEY (card_id) REFERENCES cards(id)
);
`
