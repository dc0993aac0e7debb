package main

import (
	"context"
	"fmt"
	"log"

	"github.com/UkralStul/social-blog-service/internal/auth"
	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"
)

const seedPassword = "password123"

// fillWithMockData наполняет хранилище демо-данными: два пользователя,
// посты с тегами, ветка комментариев, реакции и подписка.
func fillWithMockData(ctx context.Context, s storage.Storage) error {
	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to hash password: %w", err)
	}

	// 1. Пользователи с профилями по умолчанию
	_, alice, err := s.CreateUser(ctx, &domain.User{Username: "alice", PasswordHash: hash})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create alice: %w", err)
	}
	_, bob, err := s.CreateUser(ctx, &domain.User{Username: "bob", PasswordHash: hash})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create bob: %w", err)
	}

	// 2. Пост с тегами
	tags, err := domain.ParseTagTitles("#go #web")
	if err != nil {
		return err
	}
	post, err := s.CreatePost(ctx, &domain.Post{
		Title:    "Первый пост",
		Caption:  "Здесь мы обсуждаем Go и веб-разработку.",
		AuthorID: alice.ID,
	}, tags)
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create post: %w", err)
	}

	// 3. Корневой комментарий и ответ на него
	c1, err := s.CreateComment(ctx, &domain.Comment{
		PostID:   post.ID,
		AuthorID: bob.ID,
		Text:     "Отличный пост! Очень информативно.",
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create comment: %w", err)
	}
	if _, err := s.CreateComment(ctx, &domain.Comment{
		PostID:   post.ID,
		ParentID: &c1.ID,
		AuthorID: alice.ID,
		Text:     "Спасибо! Рад, что вам понравилось.",
	}); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create reply: %w", err)
	}

	// 4. Архивный пост не виден в общей ленте
	archived, err := s.CreatePost(ctx, &domain.Post{
		Title:    "Черновик",
		Caption:  "Этот пост в архиве.",
		AuthorID: bob.ID,
		Archived: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create archived post: %w", err)
	}

	// 5. Реакции и подписка
	if _, err := s.ToggleReaction(ctx, bob.ID, domain.PostRef(post.ID), domain.Like); err != nil {
		return fmt.Errorf("fillWithMockData: failed to react: %w", err)
	}
	if _, err := s.ToggleReaction(ctx, alice.ID, domain.CommentRef(c1.ID), domain.Like); err != nil {
		return fmt.Errorf("fillWithMockData: failed to react: %w", err)
	}
	if _, err := s.Follow(ctx, bob.ID, alice.ID); err != nil {
		return fmt.Errorf("fillWithMockData: failed to follow: %w", err)
	}

	log.Printf("Mock data filled successfully. Users alice/bob (password %q), post ID: %d, archived post ID: %d",
		seedPassword, post.ID, archived.ID)
	return nil
}
