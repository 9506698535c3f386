package storage

const schema = `
-- 'users' holds the accounts that own subjects and cards.
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);

-- 'subjects' are lecture courses. days is a JSON list of weekday indices (0 = Monday).
CREATE TABLE IF NOT EXISTS subjects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    colour TEXT NOT NULL,
    days TEXT NOT NULL DEFAULT '[]',

    UNIQUE(owner_id, name),
    UNIQUE(owner_id, colour),
    FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
);

-- 'cards' are generated review tasks. card_key identifies a card by
-- (owner, subject, title, points, due date) so inserts can be idempotent.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_key TEXT NOT NULL UNIQUE,
    owner_id TEXT NOT NULL,
    subject_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    points INTEGER NOT NULL DEFAULT 1,
    due_date TEXT NOT NULL, -- YYYY-MM-DD

    FOREIGN KEY(subject_id) REFERENCES subjects(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cards_owner_due ON cards(owner_id, due_date);
`
