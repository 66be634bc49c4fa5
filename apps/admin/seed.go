package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/task"
	"github.com/nexora/backend/core/user"
)

// seed loads a small demo dataset: accounts for every role, a couple of
// tasks and quizzes, and recorded attempts/submissions so the leaderboard
// has something to show. Rewards flow through the regular services, so
// points, xp and levels line up with what the engine would produce.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	accounts := []user.NewUser{
		{Name: "Admin User", Email: "admin@nexora.com", Password: "admin123", PasswordConfirm: "admin123", Role: user.RoleAdmin},
		{Name: "Teacher One", Email: "teacher1@nexora.com", Password: "teacher123", PasswordConfirm: "teacher123", Role: user.RoleTeacher},
		{Name: "Teacher Two", Email: "teacher2@nexora.com", Password: "teacher123", PasswordConfirm: "teacher123", Role: user.RoleTeacher},
		{Name: "Student One", Email: "student1@nexora.com", Password: "student123", PasswordConfirm: "student123", Role: user.RoleStudent},
		{Name: "Student Two", Email: "student2@nexora.com", Password: "student123", PasswordConfirm: "student123", Role: user.RoleStudent},
		{Name: "Student Three", Email: "student3@nexora.com", Password: "student123", PasswordConfirm: "student123", Role: user.RoleStudent},
	}

	users := make(map[string]user.User, len(accounts))
	for _, nu := range accounts {
		usr, err := cli.usrSvc.Create(ctx, nu)
		if err != nil {
			return errors.Wrapf(err, "creating %s", nu.Email)
		}
		users[usr.Email] = usr
	}
	logger.Printf("created %d users\n", len(users))

	admin := users["admin@nexora.com"]
	teacher1 := users["teacher1@nexora.com"]
	students := []user.User{
		users["student1@nexora.com"],
		users["student2@nexora.com"],
		users["student3@nexora.com"],
	}
	studentIDs := make([]string, len(students))
	for i, s := range students {
		studentIDs[i] = s.ID
	}

	// tasks
	day := 24 * time.Hour
	newTasks := []struct {
		actor user.User
		data  task.NewTask
	}{
		{teacher1, task.NewTask{
			Title:       "Recycle Plastic Bottles",
			Description: "Collect and properly recycle 10 plastic bottles. Take a photo of the bottles before recycling and document the recycling process.",
			Category:    "recycling",
			Points:      20,
			Difficulty:  "easy",
			DueDate:     time.Now().Add(7 * day),
			AssignedTo:  studentIDs,
		}},
		{admin, task.NewTask{
			Title:       "Energy Conservation Challenge",
			Description: "Reduce your household energy consumption by 20% for one week. Track your daily usage and implement energy-saving measures.",
			Category:    "energy",
			Points:      50,
			Difficulty:  "medium",
			DueDate:     time.Now().Add(14 * day),
			AssignedTo:  studentIDs,
		}},
		{teacher1, task.NewTask{
			Title:       "Water Conservation Project",
			Description: "Create a water conservation plan for your home and implement it for one week. Document your water usage and conservation methods.",
			Category:    "water",
			Points:      30,
			Difficulty:  "easy",
			DueDate:     time.Now().Add(10 * day),
			AssignedTo:  studentIDs,
		}},
		{admin, task.NewTask{
			Title:       "Biodiversity Survey",
			Description: "Conduct a biodiversity survey in your local park or garden. Identify and document at least 10 different plant and animal species.",
			Category:    "biodiversity",
			Points:      40,
			Difficulty:  "hard",
			DueDate:     time.Now().Add(21 * day),
			AssignedTo:  studentIDs,
		}},
	}
	tasks := make([]task.Task, 0, len(newTasks))
	for _, nt := range newTasks {
		t, err := cli.taskSvc.Create(ctx, nt.actor, nt.data)
		if err != nil {
			return errors.Wrapf(err, "creating task %q", nt.data.Title)
		}
		tasks = append(tasks, t)
	}
	logger.Printf("created %d tasks\n", len(tasks))

	// quizzes
	climateQuiz, err := cli.quizSvc.Create(ctx, teacher1, quiz.NewQuiz{
		Title:       "Climate Change Basics",
		Description: "Test your knowledge about climate change and its impacts on our planet.",
		Category:    "climate",
		Points:      25,
		TimeLimit:   15,
		Questions: []quiz.NewQuestion{
			{
				Text:          "What is the primary cause of global warming?",
				Options:       []string{"Solar radiation", "Greenhouse gases", "Ocean currents", "Volcanic activity"},
				CorrectAnswer: 1,
				Explanation:   "Greenhouse gases trap heat in the atmosphere, causing global warming.",
			},
			{
				Text:          "Which gas is the most significant contributor to the greenhouse effect?",
				Options:       []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Argon"},
				CorrectAnswer: 2,
				Explanation:   "Carbon dioxide is the most significant greenhouse gas contributing to climate change.",
			},
			{
				Text:          "What is the main source of carbon dioxide emissions?",
				Options:       []string{"Deforestation", "Burning fossil fuels", "Agriculture", "Industrial processes"},
				CorrectAnswer: 1,
				Explanation:   "Burning fossil fuels for energy is the primary source of carbon dioxide emissions.",
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "creating climate quiz")
	}

	_, err = cli.quizSvc.Create(ctx, teacher1, quiz.NewQuiz{
		Title:       "Recycling Knowledge",
		Description: "How well do you know about recycling and waste management?",
		Category:    "recycling",
		Points:      20,
		TimeLimit:   10,
		Questions: []quiz.NewQuestion{
			{
				Text:          "Which of the following can be recycled?",
				Options:       []string{"Plastic bottles", "Pizza boxes with grease", "Broken glass", "All of the above"},
				CorrectAnswer: 0,
				Explanation:   "Only clean plastic bottles can be recycled. Greasy pizza boxes and broken glass cannot be recycled.",
			},
			{
				Text:          "What is the recycling symbol number for PET plastic?",
				Options:       []string{"1", "2", "3", "4"},
				CorrectAnswer: 0,
				Explanation:   "PET (Polyethylene Terephthalate) is marked with recycling symbol number 1.",
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "creating recycling quiz")
	}
	logger.Println("created 2 quizzes")

	// recorded activity: a perfect and a partial attempt, plus a reviewed submission
	if _, err = cli.quizSvc.Attempt(ctx, students[0], climateQuiz.ID, []int{1, 2, 1}); err != nil {
		return errors.Wrap(err, "recording attempt")
	}
	if _, err = cli.quizSvc.Attempt(ctx, students[1], climateQuiz.ID, []int{1, 2, 0}); err != nil {
		return errors.Wrap(err, "recording attempt")
	}

	sub, err := cli.taskSvc.Submit(ctx, students[0], tasks[0].ID, task.NewSubmission{
		Description: "Collected 12 plastic bottles from my neighborhood and took them to the local recycling center.",
		Files:       []task.NewFile{{Filename: "bottles-before.jpg", Path: "/uploads/bottles-before.jpg"}},
	})
	if err != nil {
		return errors.Wrap(err, "recording submission")
	}
	_, err = cli.taskSvc.Review(ctx, teacher1, tasks[0].ID, task.ReviewSubmission{
		SubmissionID:  sub.ID,
		Status:        task.StatusApproved,
		Feedback:      "Great work! You exceeded the requirement and provided good documentation.",
		PointsAwarded: 20,
	})
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}

	logger.Println("seeding completed")
	logger.Println("Admin: admin@nexora.com / admin123")
	logger.Println("Teacher: teacher1@nexora.com / teacher123")
	logger.Println("Student: student1@nexora.com / student123")
	return nil
}
