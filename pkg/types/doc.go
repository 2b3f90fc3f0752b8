// Package types provides shared type definitions for the repoqa service.
//
// This package defines the domain types passed between the query engine and
// its collaborators: conversation messages, evidence references, index
// candidates, and the wire shapes of the query API.
//
// # Core Types
//
// Message is one entry in a conversation's append-only history:
//
//	msg := types.Message{
//	    Role:      types.RoleUser,
//	    Content:   "What is the default embedding model?",
//	    Timestamp: time.Now().UTC(),
//	}
//
// SourceReference ties part of an answer back to the file excerpt that
// supported it:
//
//	ref := types.SourceReference{
//	    File:      "src/config.py",
//	    LineStart: 1,
//	    LineEnd:   12,
//	    Score:     0.84,
//	    Content:   excerpt,
//	}
//
// FileCandidate is a file proposed by the index for ranking. Content is read
// lazily so ranking can bound how much I/O it performs:
//
//	prefix, err := cand.Content(1000)
//
// # Validation
//
// Domain types carry validation methods used at component boundaries:
//
//	if err := ref.Validate(); err != nil {
//	    return err
//	}
//
// Relevance scores are normalized to [0, 1], with higher values indicating
// better matches.
package types
