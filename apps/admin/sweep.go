package main

import (
	"context"

	"github.com/trezcool/darasa/core/integrity"
)

// sweep walks every governed reference in the store and lets the
// integrity layer repair what it finds, then reports the repairs. Reads
// through the API do this lazily; sweep just does it all at once.
func (cli *commandLine) sweep() error {
	ctx := context.Background()

	sink := new(integrity.CaptureSink)
	engine := integrity.NewEngine(cli.store, sink)
	resolver := integrity.NewResolver(cli.store, engine)

	classrooms, err := cli.classRepo.QueryAllClassrooms(ctx)
	if err != nil {
		return err
	}
	for i := range classrooms {
		c := classrooms[i]
		res, err := resolver.Resolve(ctx, &c, integrity.FieldInstructor)
		if err != nil {
			return err
		}
		if res == integrity.OwnerDeleted {
			continue // cascade took the roster with it
		}
		if _, err = resolver.SafeList(ctx, &c, integrity.FieldStudents); err != nil {
			return err
		}
	}

	grades, err := cli.gradeRepo.QueryAllGrades(ctx)
	if err != nil {
		return err
	}
	for i := range grades {
		g := grades[i]
		if _, err = resolver.Resolve(ctx, &g, integrity.FieldStudent); err != nil {
			return err
		}
	}

	sessions, err := cli.attRepo.QueryAllSessions(ctx)
	if err != nil {
		return err
	}
	for i := range sessions {
		s := sessions[i]
		if _, err = resolver.SafeList(ctx, &s, integrity.FieldRecords); err != nil {
			return err
		}
	}

	announcements, err := cli.annRepo.QueryAllAnnouncements(ctx)
	if err != nil {
		return err
	}
	for i := range announcements {
		a := announcements[i]
		if _, err = resolver.Resolve(ctx, &a, integrity.FieldAuthor); err != nil {
			return err
		}
	}

	events := sink.Events()
	if len(events) == 0 {
		logger.Println("sweep: store is clean, no repairs needed")
		return nil
	}
	for _, ev := range events {
		logger.Printf("sweep: %s %s field %q: %s", ev.Owner, ev.OwnerID, ev.Field, ev.Outcome)
	}
	logger.Printf("sweep: %d repair(s) applied", len(events))
	return nil
}
