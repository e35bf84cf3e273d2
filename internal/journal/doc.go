// package journal writes and reads the append-only JSONL record of a session.
//
// Every scheduler cycle becomes one line of type "cycle" carrying the full decision state, and every
// other session event becomes a {type, timestamp, data} line. Files are named
// session_<unix>_<pid>.jsonl so several runs can share a directory.
package journal
