package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/activity"
	"github.com/hackgods/clinic-management/internal/appointment"
	"github.com/hackgods/clinic-management/internal/config"
	"github.com/hackgods/clinic-management/internal/db"
	"github.com/hackgods/clinic-management/internal/specialty"
	"github.com/hackgods/clinic-management/internal/user"
)

const (
	medecinCount      = 20
	patientCount      = 200
	rendezVousPerUser = 2
	seedPassword      = "motdepasse"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	pool, err := db.Open(openCtx, cfg.PostgresDSN, true)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := gofakeit.Seed(time.Now().UnixNano()); err != nil {
		log.Fatalf("seed faker: %v", err)
	}

	users := user.NewService(user.NewPgRepository(pool), activity.NewRecorder(activity.NewPgRepository(pool)))

	if err := seedAdmin(ctx, users); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	medecins, err := seedMedecins(ctx, users, medecinCount)
	if err != nil {
		log.Fatalf("seed medecins: %v", err)
	}
	patients, err := seedPatients(ctx, users, medecins, patientCount)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedRendezVous(ctx, appointment.NewPgRepository(pool), patients, cfg.Location()); err != nil {
		log.Fatalf("seed rendezvous: %v", err)
	}

	log.Printf("seed complete, every account uses the password %q", seedPassword)
}

func seedAdmin(ctx context.Context, users *user.Service) error {
	_, err := users.Create(ctx, uuid.Nil, user.CreateInput{
		Email:    "admin@clinique.local",
		Password: seedPassword,
		Role:     user.RoleAdmin,
		Nom:      "Admin",
		Prenom:   "Clinique",
	})
	if errors.Is(err, user.ErrEmailTaken) {
		log.Println("admin already present")
		return nil
	}
	return err
}

func seedMedecins(ctx context.Context, users *user.Service, count int) ([]*user.User, error) {
	log.Printf("seeding %d medecins", count)

	specialites := specialty.Specialites()
	out := make([]*user.User, 0, count)
	for i := 0; i < count; i++ {
		prenom, nom := gofakeit.FirstName(), gofakeit.LastName()
		u, err := users.Create(ctx, uuid.Nil, user.CreateInput{
			Email:      fakeEmail("dr", prenom, nom),
			Password:   seedPassword,
			Role:       user.RoleMedecin,
			Nom:        nom,
			Prenom:     prenom,
			Telephone:  gofakeit.Phone(),
			Specialite: specialites[i%len(specialites)],
		})
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	log.Println("medecins seeded")
	return out, nil
}

func seedPatients(ctx context.Context, users *user.Service, medecins []*user.User, count int) ([]*user.User, error) {
	log.Printf("seeding %d patients", count)

	out := make([]*user.User, 0, count)
	for i := 0; i < count; i++ {
		prenom, nom := gofakeit.FirstName(), gofakeit.LastName()
		in := user.CreateInput{
			Email:         fakeEmail("", prenom, nom),
			Password:      seedPassword,
			Role:          user.RolePatient,
			Nom:           nom,
			Prenom:        prenom,
			Telephone:     gofakeit.Phone(),
			Adresse:       gofakeit.Street() + ", " + gofakeit.City(),
			DateNaissance: gofakeit.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)).Format("2006-01-02"),
		}
		if gofakeit.Bool() {
			id := medecins[gofakeit.Number(0, len(medecins)-1)].ID
			in.MedecinID = &id
		}
		u, err := users.Create(ctx, uuid.Nil, in)
		if err != nil {
			return nil, err
		}
		out = append(out, u)

		if (i+1)%50 == 0 {
			log.Printf("patients seeded: %d/%d", i+1, count)
		}
	}

	log.Println("patients seeded")
	return out, nil
}

// seedRendezVous writes rows straight through the repository so that some
// land in the past and give the status sweep work to do.
func seedRendezVous(ctx context.Context, repo *appointment.PgRepository, patients []*user.User, loc *time.Location) error {
	log.Printf("seeding rendez-vous for %d patients", len(patients))

	motifs := []string{"Consultation", "Contrôle", "Suivi de traitement", "Renouvellement d'ordonnance", "Bilan annuel"}
	today := time.Now().In(loc)
	taken := map[string]bool{}

	created := 0
	for _, p := range patients {
		if p.MedecinID == nil {
			continue
		}
		for j := 0; j < rendezVousPerUser; j++ {
			day := today.AddDate(0, 0, gofakeit.Number(-10, 30))
			heure := fmt.Sprintf("%02d:%02d", gofakeit.Number(8, 17), 30*gofakeit.Number(0, 1))
			key := p.MedecinID.String() + day.Format("2006-01-02") + heure
			if taken[key] {
				continue
			}
			taken[key] = true

			rv := &appointment.RendezVous{
				ID:        uuid.New(),
				Date:      day.Format("2006-01-02"),
				Heure:     heure,
				Motif:     motifs[gofakeit.Number(0, len(motifs)-1)],
				Statut:    appointment.StatusUpcoming,
				PatientID: p.ID,
				MedecinID: *p.MedecinID,
			}
			if err := repo.Create(ctx, rv); err != nil {
				return err
			}
			created++
		}
	}

	log.Printf("rendez-vous seeded: %d", created)
	return nil
}

func fakeEmail(prefix, prenom, nom string) string {
	local := strings.ToLower(prenom + "." + nom)
	if prefix != "" {
		local = prefix + "." + local
	}
	local = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, local)
	return fmt.Sprintf("%s.%d@example.fr", local, gofakeit.Number(100, 999_999))
}
