package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quizgram-bot/internal/app"
	"quizgram-bot/internal/domain"
)

// botAPI is the subset of *tgbotapi.BotAPI the handlers use; tests substitute a
// recording fake.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Registry is the part of the user registry the transport writes to.
type Registry interface {
	AddIfAbsent(user domain.User) (bool, error)
}

// Bot wires Telegram updates into the quiz and admin services.
type Bot struct {
	api         botAPI
	quiz        *app.QuizService
	admin       *app.AdminService
	registry    Registry
	adminID     int64
	answerDelay time.Duration
}

func New(api botAPI, quiz *app.QuizService, admin *app.AdminService, registry Registry, adminID int64, answerDelay time.Duration) *Bot {
	return &Bot{
		api:         api,
		quiz:        quiz,
		admin:       admin,
		registry:    registry,
		adminID:     adminID,
		answerDelay: answerDelay,
	}
}

// Run consumes updates until the channel closes or ctx is canceled. Each update
// is handled on its own goroutine, so one user's pacing delay or a running
// broadcast never blocks other users' events.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleAnswer(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "stop":
		b.handleStop(msg)
	case "usinfo":
		b.handleDigest(msg)
	case "broadcast":
		b.handleBroadcast(ctx, msg)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From
	if from == nil {
		return
	}

	user := domain.User{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		Joined:    time.Now().Format("2006-01-02 15:04"),
	}
	if _, err := b.registry.AddIfAbsent(user); err != nil {
		// The in-memory registry already holds the user; keep the quiz going.
		log.Printf("persist user %d: %v", from.ID, err)
	}

	if err := b.quiz.StartSession(ctx, from.ID); err != nil {
		log.Printf("start session for %d: %v", from.ID, err)
		return
	}
	b.sendQuestion(ctx, from.ID, msg.Chat.ID)
}

func (b *Bot) handleStop(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	b.quiz.EndSession(msg.From.ID)
	b.sendText(msg.Chat.ID, "Викторина остановлена. Отправьте /start, чтобы начать заново.")
}

func (b *Bot) sendQuestion(ctx context.Context, userID, chatID int64) {
	prompt, err := b.quiz.NextQuestion(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuestions) {
			b.sendText(chatID, "Вопросов пока нет, загляните позже 🙌")
		} else if !errors.Is(err, domain.ErrNoActiveSession) {
			log.Printf("next question for %d: %v", userID, err)
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, prompt.Text)
	msg.ReplyMarkup = optionsKeyboard(prompt.Options)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send question to %d: %v", chatID, err)
	}
}

// optionsKeyboard renders one button per option; callback data is the option's
// position in the rendered order.
func optionsKeyboard(options []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for i, option := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(option, strconv.Itoa(i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleAnswer(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Telegram keeps the button spinner until the callback is answered, so the
	// acknowledgment goes out first, including on every bail-out path below.
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("answer callback %s: %v", callback.ID, err)
	}
	if callback.From == nil || callback.Message == nil {
		return
	}
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	position, err := strconv.Atoi(callback.Data)
	if err != nil {
		return
	}
	review, err := b.quiz.GradeAnswer(ctx, userID, position)
	if err != nil {
		// Stale keyboard or a restarted process; the ack is the whole reply.
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, callback.Message.MessageID, verdictText(review))
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("edit verdict for %d: %v", chatID, err)
	}

	b.quiz.ScheduleNext(userID, b.answerDelay, func() {
		b.sendQuestion(context.Background(), userID, chatID)
	})
}

func verdictText(review domain.Review) string {
	if review.Correct {
		return fmt.Sprintf("%s\n\n✔ <b>Верно!</b>\n\nПравильный ответ:\n%s",
			review.QuestionText, review.CorrectText)
	}
	return fmt.Sprintf("%s\n\n❌ <b>Неверно</b>\n\nВерный ответ:\n%s",
		review.QuestionText, review.CorrectText)
}

func (b *Bot) handleDigest(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From) {
		return
	}

	digest := b.admin.Digest()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Всего пользователей: %d\n", digest.Total)
	if len(digest.Recent) > 0 {
		sb.WriteString("\nПоследние:\n")
		for _, user := range digest.Recent {
			name := user.FirstName
			if user.Username != "" {
				name = "@" + user.Username
			}
			fmt.Fprintf(&sb, "%d — %s (%s)\n", user.ID, name, user.Joined)
		}
	}
	b.sendText(msg.Chat.ID, sb.String())
}

func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From) {
		return
	}

	report, err := b.admin.Broadcast(ctx, msg.CommandArguments(), b)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyBroadcast) {
			b.sendText(msg.Chat.ID, "Текст рассылки пуст. Использование: /broadcast <текст>")
		}
		return
	}
	b.sendText(msg.Chat.ID, fmt.Sprintf("Рассылка завершена: отправлено %d, не доставлено %d",
		report.Sent, report.Failed))
}

func (b *Bot) isAdmin(from *tgbotapi.User) bool {
	return from != nil && b.adminID != 0 && from.ID == b.adminID
}

// SendDirect implements app.DirectSender over the bot API.
func (b *Bot) SendDirect(_ context.Context, userID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("send message to %d: %v", chatID, err)
	}
}
